package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxTitleChars = 280
	maxTextChars  = 2500000
)

// hiddenNamePattern matches class/id naming conventions used for FAQ and
// accordion-style collapsed content.
var hiddenNamePattern = regexp.MustCompile(`(?i)faq|accordion|collaps|toggle|expand|question|answer`)

// hiddenDataAttrs are attributes that explicitly mark content as collapsed
// or revealed by script.
var hiddenDataAttrs = []string{"data-faq", "data-accordion", "data-collapse", "data-collapsed", "data-toggle", "data-hidden"}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// ExtractContent produces (title, full visible text) from a parsed page.
// Only script/style/noscript content is excluded; structural elements are
// kept so CSS-hidden copy is still captured. A recovery pass then re-extracts
// FAQ/accordion-style collapsed content that flattening tends to mangle, and
// appends it when not already present.
func ExtractContent(doc *goquery.Document, url string) (string, string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = url
	}

	text := visibleText(doc)
	text = appendRecovered(text, recoverHiddenContent(doc))

	text = xhtml.UnescapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")

	return clipChars(title, maxTitleChars), clipChars(text, maxTextChars)
}

// visibleText serializes all text nodes in document order, one per line,
// skipping script/style/noscript subtrees without mutating the document.
func visibleText(doc *goquery.Document) string {
	var lines []string

	for _, root := range doc.Nodes {
		stack := []*xhtml.Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if n.Type == xhtml.TextNode {
				if t := strings.TrimSpace(n.Data); t != "" {
					lines = append(lines, collapseSpace(t))
				}
				continue
			}
			if n.Type == xhtml.ElementNode {
				switch n.DataAtom {
				case atom.Script, atom.Style, atom.Noscript:
					continue
				}
			}
			for c := n.LastChild; c != nil; c = c.PrevSibling {
				stack = append(stack, c)
			}
		}
	}

	return strings.Join(lines, "\n")
}

// recoverHiddenContent re-extracts content that visual collapsing commonly
// hides: definition-list Q/A pairs, FAQ/accordion-named containers, elements
// with explicit hidden-content data attributes, and aria-hidden="false"
// reveals.
func recoverHiddenContent(doc *goquery.Document) []string {
	var snippets []string
	seen := make(map[*xhtml.Node]struct{})

	collect := func(s *goquery.Selection) {
		for _, n := range s.Nodes {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			if t := strings.TrimSpace(blockText(n)); t != "" {
				snippets = append(snippets, t)
			}
		}
	}

	doc.Find("dl").Each(func(_ int, s *goquery.Selection) { collect(s) })

	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if hiddenNamePattern.MatchString(class) || hiddenNamePattern.MatchString(id) {
			collect(s)
		}
	})

	for _, attr := range hiddenDataAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) { collect(s) })
	}

	doc.Find(`[aria-hidden="false"]`).Each(func(_ int, s *goquery.Selection) { collect(s) })

	return snippets
}

// appendRecovered merges recovered snippets into the main text. A snippet is
// appended only when a sample of its substantive lines (the first 10 lines
// longer than 30 characters) is not already present in the main text; this
// is a cheap order-insensitive dedup, not an exact diff.
func appendRecovered(text string, snippets []string) string {
	for _, snippet := range snippets {
		var sample []string
		for _, line := range strings.Split(snippet, "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 30 {
				sample = append(sample, line)
				if len(sample) >= 10 {
					break
				}
			}
		}

		missing := false
		for _, line := range sample {
			if !strings.Contains(text, line) {
				missing = true
				break
			}
		}
		if missing {
			text = text + "\n" + snippet
		}
	}
	return text
}

func clipChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/sitemark/pkg/models"
)

var outlineMetaProps = []string{
	"og:title", "og:description", "og:type", "og:url", "og:image",
	"twitter:title", "twitter:description", "twitter:image",
}

// BuildOutline converts a page's DOM into its structured outline: metadata,
// the flat heading list, and heading-bounded sections. The outline gives the
// model a higher-signal view of the page than the flattened raw text.
func BuildOutline(doc *goquery.Document) models.Outline {
	outline := models.Outline{
		Meta:     buildMeta(doc),
		Headings: []models.Heading{},
		Sections: []models.Section{},
	}

	headingNodes := findHeadingNodes(doc)
	for _, h := range headingNodes {
		outline.Headings = append(outline.Headings, models.Heading{
			Tag:   h.Data,
			Level: headingLevel(h),
			Text:  inlineText(h),
		})
	}

	if len(headingNodes) == 0 {
		return outline
	}

	// Preface content before the first heading becomes a synthetic Intro
	// section at level 0 so it sorts above every real heading.
	if intro := precedingText(headingNodes[0]); intro != "" {
		outline.Sections = append(outline.Sections, models.Section{
			Heading: "Intro",
			Level:   0,
			Text:    intro,
		})
	}

	for _, h := range headingNodes {
		level := headingLevel(h)
		var parts []string
		for sib := h.NextSibling; sib != nil; sib = sib.NextSibling {
			if isHeading(sib) && headingLevel(sib) <= level {
				break
			}
			if t := blockText(sib); strings.TrimSpace(t) != "" {
				parts = append(parts, t)
			}
		}
		outline.Sections = append(outline.Sections, models.Section{
			Heading: inlineText(h),
			Level:   level,
			Text:    strings.Join(parts, "\n"),
		})
	}

	// Trailing content after the last heading becomes a synthetic Outro
	// section at level 7, below any real heading.
	last := headingNodes[len(headingNodes)-1]
	var trail []string
	for sib := last.NextSibling; sib != nil; sib = sib.NextSibling {
		if t := blockText(sib); strings.TrimSpace(t) != "" {
			trail = append(trail, t)
		}
	}
	if len(trail) > 0 {
		outline.Sections = append(outline.Sections, models.Section{
			Heading: "Outro",
			Level:   7,
			Text:    strings.Join(trail, "\n"),
		})
	}

	return outline
}

func buildMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	for _, name := range []string{"description", "keywords"} {
		if content, ok := doc.Find(`meta[name="` + name + `"]`).First().Attr("content"); ok {
			if v := strings.TrimSpace(content); v != "" {
				meta[name] = v
			}
		}
	}
	for _, prop := range outlineMetaProps {
		sel := doc.Find(`meta[property="` + prop + `"]`).First()
		if sel.Length() == 0 {
			sel = doc.Find(`meta[name="` + prop + `"]`).First()
		}
		if content, ok := sel.Attr("content"); ok {
			if v := strings.TrimSpace(content); v != "" {
				meta[prop] = v
			}
		}
	}
	return meta
}

func findHeadingNodes(doc *goquery.Document) []*html.Node {
	var nodes []*html.Node
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

// precedingText renders the siblings before a node, in document order.
func precedingText(n *html.Node) string {
	var parts []string
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if t := blockText(sib); strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "\n")
}

package crawler

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockText renders a DOM node as readable plain text preserving block
// structure: paragraphs verbatim, lists as "- item" lines, tables as
// pipe-delimited rows, images as "[image: alt]" captions, definition lists
// as "Q: ... / A: ..." pairs, generic containers by concatenating child
// blocks. Traversal uses an explicit work-stack so deeply nested markup
// cannot exhaust the call stack.
func blockText(root *html.Node) string {
	if root == nil {
		return ""
	}

	type frame struct {
		node     *html.Node
		expanded bool
	}

	rendered := make(map[*html.Node]string)
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.expanded {
			var parts []string
			for c := f.node.FirstChild; c != nil; c = c.NextSibling {
				if t := rendered[c]; t != "" {
					parts = append(parts, t)
				}
				delete(rendered, c)
			}
			rendered[f.node] = strings.Join(parts, "\n")
			continue
		}

		if direct, ok := renderDirect(f.node); ok {
			rendered[f.node] = direct
			continue
		}

		// Generic container: render children first, assemble on revisit.
		stack = append(stack, frame{node: f.node, expanded: true})
		for c := f.node.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, frame{node: c})
		}
	}

	return rendered[root]
}

// renderDirect handles node kinds with a dedicated rendering, returning
// ok=false for generic containers that need child assembly.
func renderDirect(n *html.Node) (string, bool) {
	switch n.Type {
	case html.TextNode:
		return collapseSpace(n.Data), true
	case html.ElementNode:
	default:
		return "", true
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return "", true
	case atom.P, atom.Blockquote, atom.Pre, atom.Code:
		return inlineText(n), true
	case atom.Ul, atom.Ol:
		var items []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				if t := inlineText(c); t != "" {
					items = append(items, "- "+t)
				}
			}
		}
		return strings.Join(items, "\n"), true
	case atom.Table:
		return tableText(n), true
	case atom.Dl:
		return definitionListText(n), true
	case atom.Img:
		if alt := attrValue(n, "alt"); alt != "" {
			return "[image: " + alt + "]", true
		}
		return "", true
	}

	return "", false
}

// inlineText flattens all descendant text of n into a single space-joined
// line.
func inlineText(n *html.Node) string {
	var parts []string
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.Type == html.TextNode {
			if t := collapseSpace(cur.Data); t != "" {
				parts = append(parts, t)
			}
			continue
		}
		if cur.Type == html.ElementNode {
			switch cur.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				continue
			}
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return strings.Join(parts, " ")
}

func tableText(table *html.Node) string {
	var rows []string
	stack := []*html.Node{table}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.Type == html.ElementNode && cur.DataAtom == atom.Tr {
			var cells []string
			for c := cur.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Th || c.DataAtom == atom.Td) {
					cells = append(cells, inlineText(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
			continue
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return strings.Join(rows, "\n")
}

// definitionListText renders dt/dd pairs as question/answer lines, the form
// FAQ content most often takes in markup.
func definitionListText(dl *html.Node) string {
	var lines []string
	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Dt:
			if t := inlineText(c); t != "" {
				lines = append(lines, "Q: "+t)
			}
		case atom.Dd:
			if t := inlineText(c); t != "" {
				lines = append(lines, "A: "+t)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isHeading(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

// headingLevel maps h1..h6 to 1..6; anything else ranks below all real
// headings.
func headingLevel(n *html.Node) int {
	if !isHeading(n) {
		return 7
	}
	return int(n.Data[1] - '0')
}

package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestBuildOutline_Sectionization(t *testing.T) {
	doc := parseDoc(t, `<html><body><h1>A</h1><p>p1</p><h2>B</h2><p>p2</p></body></html>`)

	outline := BuildOutline(doc)

	require.Len(t, outline.Sections, 2)
	assert.Equal(t, "A", outline.Sections[0].Heading)
	assert.Equal(t, 1, outline.Sections[0].Level)
	assert.Equal(t, "p1", outline.Sections[0].Text)
	assert.Equal(t, "B", outline.Sections[1].Heading)
	assert.Equal(t, 2, outline.Sections[1].Level)
	assert.Equal(t, "p2", outline.Sections[1].Text)
}

func TestBuildOutline_SectionStopsAtShallowerHeading(t *testing.T) {
	doc := parseDoc(t, `<html><body><h2>Sub</h2><p>inside</p><h1>Top</h1><p>outside</p></body></html>`)

	outline := BuildOutline(doc)

	require.GreaterOrEqual(t, len(outline.Sections), 2)
	assert.Equal(t, "Sub", outline.Sections[0].Heading)
	assert.Equal(t, "inside", outline.Sections[0].Text)
	assert.NotContains(t, outline.Sections[0].Text, "outside")
}

func TestBuildOutline_IntroAndOutro(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>preface copy</p><h1>Main</h1><p>body</p><h2>Last</h2><p>tail copy</p></body></html>`)

	outline := BuildOutline(doc)

	require.NotEmpty(t, outline.Sections)
	assert.Equal(t, "Intro", outline.Sections[0].Heading)
	assert.Equal(t, 0, outline.Sections[0].Level)
	assert.Equal(t, "preface copy", outline.Sections[0].Text)

	last := outline.Sections[len(outline.Sections)-1]
	assert.Equal(t, "Outro", last.Heading)
	assert.Equal(t, 7, last.Level)
	assert.Equal(t, "tail copy", last.Text)
}

func TestBuildOutline_Headings(t *testing.T) {
	doc := parseDoc(t, `<html><body><h1>One</h1><h3>Three</h3></body></html>`)

	outline := BuildOutline(doc)

	require.Len(t, outline.Headings, 2)
	assert.Equal(t, "h1", outline.Headings[0].Tag)
	assert.Equal(t, 1, outline.Headings[0].Level)
	assert.Equal(t, "One", outline.Headings[0].Text)
	assert.Equal(t, "h3", outline.Headings[1].Tag)
	assert.Equal(t, 3, outline.Headings[1].Level)
}

func TestBuildOutline_Meta(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<title>Page Title</title>
		<meta name="description" content="A description">
		<meta property="og:image" content="https://example.com/logo.png">
	</head><body></body></html>`)

	outline := BuildOutline(doc)

	assert.Equal(t, "Page Title", outline.Meta["title"])
	assert.Equal(t, "A description", outline.Meta["description"])
	assert.Equal(t, "https://example.com/logo.png", outline.Meta["og:image"])
}

func TestBuildOutline_NoHeadings(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>just text</p></body></html>`)

	outline := BuildOutline(doc)

	assert.Empty(t, outline.Headings)
	assert.Empty(t, outline.Sections)
}

func TestBlockText_ListAndTable(t *testing.T) {
	doc := parseDoc(t, `<html><body><div id="root">
		<ul><li>first</li><li>second</li></ul>
		<table><tr><th>H1</th><th>H2</th></tr><tr><td>a</td><td>b</td></tr></table>
		<img src="x.png" alt="a caption">
	</div></body></html>`)

	node := doc.Find("#root").Nodes[0]
	text := blockText(node)

	assert.Contains(t, text, "- first\n- second")
	assert.Contains(t, text, "H1 | H2")
	assert.Contains(t, text, "a | b")
	assert.Contains(t, text, "[image: a caption]")
}

func TestBlockText_DefinitionList(t *testing.T) {
	doc := parseDoc(t, `<html><body><dl id="faq">
		<dt>What is it?</dt><dd>A crawler.</dd>
	</dl></body></html>`)

	node := doc.Find("#faq").Nodes[0]
	text := blockText(node)

	assert.Contains(t, text, "Q: What is it?")
	assert.Contains(t, text, "A: A crawler.")
}

func TestBlockText_SkipsScripts(t *testing.T) {
	doc := parseDoc(t, `<html><body><div id="root"><p>keep</p><script>drop()</script></div></body></html>`)

	node := doc.Find("#root").Nodes[0]
	text := blockText(node)

	assert.Contains(t, text, "keep")
	assert.NotContains(t, text, "drop")
}

func TestBlockText_DeeplyNested(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"root\">")
	for i := 0; i < 2000; i++ {
		b.WriteString("<div>")
	}
	b.WriteString("<p>deep</p>")
	for i := 0; i < 2000; i++ {
		b.WriteString("</div>")
	}
	b.WriteString("</div></body></html>")

	doc := parseDoc(t, b.String())
	node := doc.Find("#root").Nodes[0]

	assert.Contains(t, blockText(node), "deep")
}

package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContent_SkipsScriptAndStyle(t *testing.T) {
	doc := parseDoc(t, `<html><head><title>Home</title>
		<style>body { color: red; }</style></head>
		<body><p>welcome copy</p><script>var tracked = true;</script>
		<noscript>enable javascript</noscript></body></html>`)

	title, text := ExtractContent(doc, "https://example.com/")

	assert.Equal(t, "Home", title)
	assert.Contains(t, text, "welcome copy")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "tracked")
	assert.NotContains(t, text, "enable javascript")
}

func TestExtractContent_TitleFallsBackToURL(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>no title here</p></body></html>`)

	title, _ := ExtractContent(doc, "https://example.com/about")

	assert.Equal(t, "https://example.com/about", title)
}

func TestExtractContent_TitleClipped(t *testing.T) {
	long := strings.Repeat("x", 500)
	doc := parseDoc(t, `<html><head><title>`+long+`</title></head><body></body></html>`)

	title, _ := ExtractContent(doc, "https://example.com/")

	assert.Len(t, title, maxTitleChars)
}

func TestExtractContent_KeepsCSSHiddenCopy(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div style="display:none">hidden but real copy</div>
		<p>visible copy</p></body></html>`)

	_, text := ExtractContent(doc, "https://example.com/")

	assert.Contains(t, text, "hidden but real copy")
	assert.Contains(t, text, "visible copy")
}

func TestExtractContent_RecoversFAQDefinitionList(t *testing.T) {
	answer := strings.Repeat("shipping takes three to five business days ", 2)
	doc := parseDoc(t, `<html><body>
		<h1>Help</h1>
		<dl class="faq-list" style="display:none">
			<dt>How long does shipping take?</dt>
			<dd>`+answer+`</dd>
		</dl></body></html>`)

	_, text := ExtractContent(doc, "https://example.com/faq")

	assert.Contains(t, text, "Q: How long does shipping take?")
	assert.Contains(t, text, "A: "+strings.TrimSpace(collapseSpace(answer)))
}

func TestExtractContent_RecoveryDoesNotDuplicate(t *testing.T) {
	line := "this sentence is long enough to act as a dedup sample line"
	doc := parseDoc(t, `<html><body>
		<div class="accordion"><p>`+line+`</p></div></body></html>`)

	_, text := ExtractContent(doc, "https://example.com/")

	assert.Equal(t, 1, strings.Count(text, line))
}

func TestExtractContent_EntitiesUnescaped(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>Fish &amp; Chips</p></body></html>`)

	_, text := ExtractContent(doc, "https://example.com/")

	assert.Contains(t, text, "Fish & Chips")
}

func TestExtractContent_CollapsesBlankRuns(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>first</p><p>second</p></body></html>`)

	_, text := ExtractContent(doc, "https://example.com/")

	assert.NotContains(t, text, "\n\n\n")
}

func TestRecoverHiddenContent_DataAttributes(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div data-collapsed="true"><p>collapsed details</p></div></body></html>`)

	snippets := recoverHiddenContent(doc)

	require.NotEmpty(t, snippets)
	assert.Contains(t, strings.Join(snippets, "\n"), "collapsed details")
}

func TestRecoverHiddenContent_SameNodeCollectedOnce(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div id="faq" class="accordion" data-faq="1"><p>only once</p></div></body></html>`)

	snippets := recoverHiddenContent(doc)

	assert.Len(t, snippets, 1)
}

func TestAppendRecovered_NewContentAppended(t *testing.T) {
	snippet := "a recovered answer line that is clearly longer than thirty characters"

	out := appendRecovered("existing text", []string{snippet})

	assert.Contains(t, out, snippet)
}

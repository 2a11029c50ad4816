package crawler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/sitemark/pkg/models"
)

func TestInferPageType_Patterns(t *testing.T) {
	cases := []struct {
		url      string
		expected string
	}{
		{"https://example.com/blog/launch-day", "Article"},
		{"https://example.com/news/2026/08/update", "Article"},
		{"https://example.com/products/widget", "Product"},
		{"https://example.com/p/12345", "Product"},
		{"https://example.com/services/consulting", "Service"},
		{"https://example.com/faq", "FAQPage"},
		{"https://example.com/help/billing", "FAQPage"},
		{"https://example.com/about-us", "AboutPage or WebPage"},
		{"https://example.com/contact", "AboutPage or WebPage"},
		{"https://example.com/", "WebPage (Homepage)"},
		{"https://example.com", "WebPage (Homepage)"},
		{"https://example.com/pricing", "WebPage (default)"},
	}

	for _, tc := range cases {
		hint := InferPageType(tc.url)
		assert.Equal(t, tc.expected, hint.LikelyType, "url %s", tc.url)
		assert.NotEmpty(t, hint.Reason)
	}
}

func TestTruncateText_WithinBudgetUnchanged(t *testing.T) {
	text := "short page copy"

	assert.Equal(t, text, TruncateText(text, 1000))
}

func TestTruncateText_NoMarkersPlainClip(t *testing.T) {
	text := strings.Repeat("z", 500)

	out := TruncateText(text, 100)

	assert.Equal(t, text[:100], out)
}

func TestTruncateText_NeverExceedsBudget(t *testing.T) {
	// Dense marker content past the cutoff exercises the salvage path.
	text := strings.Repeat("narrative copy ", 200) +
		strings.Repeat("Q: a question? A: an answer. ", 200)

	for _, budget := range []int{50, 300, 1000, 4000} {
		out := TruncateText(text, budget)
		assert.LessOrEqual(t, len(out), budget, "budget %d", budget)
	}
}

func TestTruncateText_SalvagesFAQPastCutoff(t *testing.T) {
	lead := strings.Repeat("intro copy ", 100)
	text := lead + strings.Repeat("filler ", 300) +
		"Q: Do you ship overseas? A: Yes, to most countries."

	out := TruncateText(text, 1500)

	assert.Contains(t, out, "intro copy")
	assert.Contains(t, out, "Do you ship overseas?")
	assert.LessOrEqual(t, len(out), 1500)
}

func TestTruncateText_ZeroBudget(t *testing.T) {
	assert.Empty(t, TruncateText("anything", 0))
}

func TestBuildUserPrompt_Parts(t *testing.T) {
	outline := models.Outline{
		Meta: map[string]string{
			"description": "A meta description",
			"og:image":    "https://example.com/logo.png",
		},
		Headings: []models.Heading{{Tag: "h1", Level: 1, Text: "Main"}},
		Sections: []models.Section{{Heading: "Main", Level: 1, Text: "body"}},
	}

	prompt := BuildUserPrompt("https://example.com/products/widget", "Widget", outline, "full text here", false)

	assert.Contains(t, prompt, "PAGE INFORMATION")
	assert.Contains(t, prompt, "https://example.com/products/widget")
	assert.Contains(t, prompt, "Widget")
	assert.Contains(t, prompt, "Product")
	assert.Contains(t, prompt, "A meta description")
	assert.Contains(t, prompt, "https://example.com/logo.png")
	assert.Contains(t, prompt, "STRUCTURED CONTENT OUTLINE")
	assert.Contains(t, prompt, "FULL EXTRACTED TEXT (complete)")
	assert.Contains(t, prompt, "full text here")
	assert.Contains(t, prompt, "YOUR TASK")
}

func TestBuildUserPrompt_TruncatedLabel(t *testing.T) {
	text := strings.Repeat("x", 100)

	prompt := BuildUserPrompt("https://example.com/", "Home", models.Outline{}, text, true)

	assert.Contains(t, prompt, "truncated to 100 chars")
	assert.NotContains(t, prompt, "FULL EXTRACTED TEXT (complete)")
}

func TestSystemPrompt_Stable(t *testing.T) {
	sys := SystemPrompt()

	assert.Contains(t, sys, "schema.org")
	assert.Contains(t, sys, "JSON-LD")
}

func TestTruncateText_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("é", 300)
	for _, budget := range []int{1, 33, 101, 599} {
		got := TruncateText(text, budget)
		assert.LessOrEqual(t, len(got), budget, "budget %d", budget)
		assert.True(t, utf8.ValidString(got), "budget %d", budget)
	}
}

func TestTruncateText_RuneSafeAroundMarkerWindows(t *testing.T) {
	lead := strings.Repeat("ü", 200)
	tail := strings.Repeat("q: Gibt es Versand? a: Ja, weltweit für äöü-Kunden. ", 40)
	text := lead + tail

	got := TruncateText(text, 500)
	assert.LessOrEqual(t, len(got), 500)
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "q:")
}

package crawler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/sitemark/pkg/models"
)

const (
	// TextBudget bounds the extracted-text portion of a prompt.
	TextBudget = 12000
	// SectionsBudget bounds how many outline sections the first attempt
	// carries.
	SectionsBudget = 20

	// faqLeadShare is the fraction of the budget reserved for the leading
	// window when FAQ content is salvaged from beyond the cutoff.
	faqLeadShare = 2.0 / 3.0
	// faqWindow is how much text is kept around each FAQ marker found past
	// the cutoff.
	faqWindow = 600
)

var faqMarkers = []string{"q:", "a:", "faq", "question", "answer"}

const systemPrompt = `You are an expert schema.org structured data analyst. Your task is to generate comprehensive, accurate, and machine-readable JSON-LD markup that enables LLMs and search engines to deeply understand the page content.

ANALYSIS PROCESS:
1. Examine the Structured Outline to understand page structure, sections, and content hierarchy.
2. CRITICAL: Determine page type using these strict rules:
   - Article: ONLY if page has datePublished, author (Person), and is clearly a blog post/news article. URL patterns like /blog/, /article/, /news/ suggest Article. Marketing pages are NOT articles.
   - Product/Service: If page describes a specific product or service with features, pricing, or offers.
   - WebPage: DEFAULT for marketing pages, landing pages, informational pages, company pages. Use WebPage unless page clearly fits another type with strong indicators.
   - FAQPage: Only if page has explicit Q&A format (questions and answers clearly paired).
   - HowTo: Only if page contains step-by-step instructions with numbered steps.
3. For mainEntity: Use Article ONLY if ALL of: datePublished exists, author exists (Person), and URL suggests blog/article. Otherwise, use appropriate type (Service, Product, WebPage, etc.) or omit mainEntity and describe content directly in WebPage properties.
4. Extract all relevant entities and relationships (Organization, Person, Product, Service, etc.)
5. Identify structured content: FAQs, HowTo steps, breadcrumbs, reviews/testimonials, features/benefits, pricing/offers (if explicit), contact information, social profiles.

SCHEMA REQUIREMENTS:
- ALWAYS include @context and @type. Use WebPage as base, add mainEntity for primary content.
- Extract Organization details: name, url, logo (from meta og:image if available), description, contactPoint (email, phone), address (if present), sameAs (social links if mentioned).
- For product/service pages: extract name, description, featureList, brand, category.
- For article/blog pages: extract headline, description, author (if mentioned), datePublished, publisher (Organization), keywords, articleSection.
- Include BreadcrumbList if navigation structure is clear from headings/sections.
- Extract FAQPage schema if Q&A format or question-answer patterns are detected.
- Include HowTo if step-by-step instructions or processes are described.
- Add aggregateRating/reviewCount ONLY if explicit numeric ratings or review counts are mentioned.
- Include offers/price ONLY if specific prices or offers are explicitly stated.
- Extract testimonials/reviews as Review objects with author, reviewBody, ratingValue if present.
- Use speakable property for key content snippets if appropriate.
- Include potentialAction (e.g., RequestQuoteAction, ContactAction) if call-to-action buttons are mentioned.

ACCURACY RULES:
- NEVER invent data. Only extract what is explicitly stated in the content.
- Use null or omit properties if information is not available.
- Extract dates, prices, ratings, counts only when explicit numeric/text values are present.
- Validate all property names against schema.org vocabulary.
- Ensure proper nesting: mainEntity, author, publisher should be complete objects with @type.
- Do NOT include debug/metadata fields (tag, level, headings, evidence, etc.)

OUTPUT FORMAT:
- Single JSON object with @context="https://schema.org"
- Rich nested structure with mainEntity and related entities
- All text values should be clean, trimmed strings
- Arrays for lists (sameAs, keywords, featureList, etc.)
- Proper URL format for all url properties

Your goal is to create schema markup so comprehensive and accurate that another LLM reading only the JSON-LD could reconstruct a detailed understanding of the page content, entities, relationships, and key information.`

// PageTypeHint is a URL-pattern-derived guess at the page's schema type,
// passed to the model as guidance only.
type PageTypeHint struct {
	LikelyType string
	Reason     string
}

// InferPageType guesses the likely schema.org type from URL path patterns.
func InferPageType(rawURL string) PageTypeHint {
	path := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		path = strings.ToLower(parsed.Path)
	}

	contains := func(patterns ...string) bool {
		for _, p := range patterns {
			if strings.Contains(path, p) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("/blog/", "/article/", "/post/", "/news/", "/story/"):
		return PageTypeHint{LikelyType: "Article", Reason: "URL suggests blog/article section"}
	case contains("/product/", "/products/", "/p/"):
		return PageTypeHint{LikelyType: "Product", Reason: "URL suggests product page"}
	case contains("/service/", "/services/"):
		return PageTypeHint{LikelyType: "Service", Reason: "URL suggests service page"}
	case contains("/faq", "/help/", "/questions/"):
		return PageTypeHint{LikelyType: "FAQPage", Reason: "URL suggests FAQ page"}
	case contains("/about", "/company", "/team", "/contact"):
		return PageTypeHint{LikelyType: "AboutPage or WebPage", Reason: "URL suggests informational/company page"}
	case path == "/" || path == "":
		return PageTypeHint{LikelyType: "WebPage (Homepage)", Reason: "Homepage - likely marketing/landing page"}
	default:
		return PageTypeHint{LikelyType: "WebPage (default)", Reason: "URL pattern suggests informational/marketing page (not Article)"}
	}
}

// TruncateText bounds text to budget characters. When the text overflows and
// carries FAQ markers beyond the cutoff, a leading window is kept and
// marker-adjacent windows are salvaged into the remaining budget; primary
// narrative first, then Q&A content, which is disproportionately valuable
// for structured-data extraction. The result never exceeds budget.
func TruncateText(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(text) <= budget {
		return text
	}

	leadSize := int(float64(budget) * faqLeadShare)
	lower := strings.ToLower(text)

	var markerIdx []int
	for _, marker := range faqMarkers {
		from := leadSize
		for from < len(lower) {
			i := strings.Index(lower[from:], marker)
			if i < 0 {
				break
			}
			markerIdx = append(markerIdx, from+i)
			from += i + len(marker)
		}
	}

	if len(markerIdx) == 0 {
		return clipRune(text, budget)
	}
	sort.Ints(markerIdx)

	lead := clipRune(text, leadSize)
	out := strings.Builder{}
	out.WriteString(lead)
	remaining := budget - len(lead)

	covered := leadSize
	for _, idx := range markerIdx {
		if remaining <= 1 {
			break
		}
		if idx < covered {
			continue
		}
		// Marker offsets come from the lowercased copy; case folding can
		// shift byte positions in non-ASCII text, so only start a window
		// on a clean rune boundary.
		if idx >= len(text) || !utf8.RuneStart(text[idx]) {
			continue
		}
		window := clipRune(text[idx:], faqWindow)
		if len(window)+1 > remaining {
			window = clipRune(window, remaining-1)
		}
		out.WriteString("\n")
		out.WriteString(window)
		remaining -= len(window) + 1
		covered = idx + len(window)
	}

	return out.String()
}

// clipRune truncates s to at most n bytes, backing off to the previous rune
// boundary so a multibyte UTF-8 sequence is never split.
func clipRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	if n < 0 {
		n = 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// BuildUserPrompt assembles the user-facing half of the request from the
// current prompt state.
func BuildUserPrompt(pageURL, title string, outline models.Outline, text string, truncated bool) string {
	hint := InferPageType(pageURL)

	var parts []string
	parts = append(parts,
		"=== PAGE INFORMATION ===",
		fmt.Sprintf("URL: %s", pageURL),
		fmt.Sprintf("Title: %s", title),
		fmt.Sprintf("\nURL Analysis Hint: %s - %s", hint.LikelyType, hint.Reason),
		"NOTE: Use this hint as guidance, but verify against actual content. Do NOT classify as Article unless the page has datePublished and author information, even if URL suggests blog.",
	)

	if len(outline.Meta) > 0 {
		parts = append(parts, "\n=== META INFORMATION ===")
		if v := outline.Meta["description"]; v != "" {
			parts = append(parts, "Description: "+v)
		}
		if v := outline.Meta["og:description"]; v != "" {
			parts = append(parts, "OG Description: "+v)
		}
		if v := outline.Meta["og:image"]; v != "" {
			parts = append(parts, "OG Image (potential logo): "+v)
		}
		if v := outline.Meta["keywords"]; v != "" {
			parts = append(parts, "Keywords: "+v)
		}
	}

	outlineJSON, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		outlineJSON = []byte("{}")
	}
	parts = append(parts,
		"\n=== STRUCTURED CONTENT OUTLINE ===",
		"Analyze this outline carefully. The 'sections' array contains the page content organized by headings.",
		"Each section has a heading, level (hierarchy), and associated text content.",
		"Use this structure to identify entities, relationships, FAQs, HowTo steps, features, testimonials, etc.",
		"\n"+string(outlineJSON),
	)

	textLabel := "complete"
	if truncated {
		textLabel = fmt.Sprintf("truncated to %d chars", len(text))
	}
	parts = append(parts,
		fmt.Sprintf("\n=== FULL EXTRACTED TEXT (%s) ===", textLabel),
		"Use this full text to verify details and extract any information missing from the outline above.",
		text,
	)

	parts = append(parts,
		"\n=== YOUR TASK ===",
		"Based on the structured outline and content above, generate comprehensive schema.org JSON-LD markup.",
		"Extract ALL relevant entities (Organization, Product, Service, Person, etc.), relationships, and structured data.",
		"Be thorough: include breadcrumbs, FAQs, features, testimonials, contact info, social links, etc. when present.",
		"Remember: accuracy is critical - only include data explicitly present in the content.",
	)

	return strings.Join(parts, "\n")
}

// SystemPrompt returns the instruction text sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

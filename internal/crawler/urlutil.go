package crawler

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeURL resolves link against base, rejects non-HTTP(S) schemes and
// strips the fragment. Returns "" for malformed or non-navigable input.
func NormalizeURL(base, link string) string {
	if link == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	ref, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}

	joined := baseURL.ResolveReference(ref)
	if joined.Scheme != "http" && joined.Scheme != "https" {
		return ""
	}

	joined.Fragment = ""
	return joined.String()
}

// SameSite reports whether a and b share a hostname. When allowSubdomains is
// set, a host that is a dot-suffix of b's host also matches. This is a plain
// host comparison, not a public-suffix-list check.
func SameSite(a, b string, allowSubdomains bool) bool {
	pa, err := url.Parse(a)
	if err != nil {
		return false
	}
	pb, err := url.Parse(b)
	if err != nil {
		return false
	}

	ha := pa.Hostname()
	hb := pb.Hostname()
	if ha == "" || hb == "" {
		return false
	}
	if ha == hb {
		return true
	}
	if allowSubdomains {
		return strings.HasSuffix(ha, "."+hb)
	}
	return false
}

// IsNavigable rejects empty hrefs and mailto/tel/javascript pseudo-links.
func IsNavigable(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// PathKey derives the manifest key for a URL: leading slash enforced,
// trailing slash stripped except for the root path.
func PathKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}

	path := parsed.Path
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// SlugFromURL builds a filesystem-safe slug from host and path, used to name
// per-page output files. Capped at 120 characters.
func SlugFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "page"
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		path = "home"
	}
	host := parsed.Hostname()
	if host == "" {
		host = "site"
	}

	slug := slugify(host + "-" + path)
	if slug == "" {
		return "page"
	}
	if len(slug) > 120 {
		slug = strings.Trim(slug[:120], "-")
	}
	return slug
}

// slugFolder strips diacritics so accented path segments slug to their
// plain-ASCII form instead of collapsing into dashes.
var slugFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slugify(s string) string {
	if folded, _, err := transform.String(slugFolder, s); err == nil {
		s = folded
	}
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

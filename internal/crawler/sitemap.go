package crawler

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

var sitemapContentTypes = []string{"application/xml", "text/xml", "application/rss+xml", "text/plain"}

var locPattern = regexp.MustCompile(`(?i)<loc>\s*([^<]+?)\s*</loc>`)

// SitemapResolver discovers sitemaps for a site and expands them, including
// sitemap indexes, into a flat seed URL list.
type SitemapResolver struct {
	fetcher *Fetcher
	emitter Emitter
}

func NewSitemapResolver(fetcher *Fetcher, emitter Emitter) *SitemapResolver {
	if emitter == nil {
		emitter = NopEmitter()
	}
	return &SitemapResolver{fetcher: fetcher, emitter: emitter}
}

// Resolve returns seed URLs for a crawl. When sitemapURL is set, only that
// sitemap is consulted; otherwise candidates are discovered from robots.txt
// and the conventional /sitemap.xml and /sitemap_index.xml locations. When
// no seeds are found the base URL itself is the sole seed.
func (r *SitemapResolver) Resolve(ctx context.Context, baseURL, sitemapURL string) []string {
	var seeds []string

	if sitemapURL != "" {
		seeds = r.expand(ctx, sitemapURL)
	} else {
		candidates := r.discover(ctx, baseURL)
		if len(candidates) > 0 {
			emitf(r.emitter, "info", "Discovered %d sitemap candidate(s)", len(candidates))
		}
		for _, sm := range candidates {
			seeds = append(seeds, r.expand(ctx, sm)...)
		}
	}

	if len(seeds) == 0 {
		r.emitter.Emit("warn", "No sitemap URLs found; falling back to base URL crawl")
		return []string{baseURL}
	}
	return seeds
}

// discover lists sitemap candidates in priority order: robots.txt Sitemap
// directives first, then the two conventional locations, de-duplicated
// preserving first-seen order.
func (r *SitemapResolver) discover(ctx context.Context, baseURL string) []string {
	var candidates []string

	if robots := r.fetcher.FetchText(ctx, resolvePath(baseURL, "/robots.txt"), nil); robots != "" {
		for _, line := range strings.Split(robots, "\n") {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) >= 8 && strings.EqualFold(trimmed[:8], "sitemap:") {
				if loc := strings.TrimSpace(trimmed[8:]); loc != "" {
					candidates = append(candidates, loc)
				}
			}
		}
	}

	candidates = append(candidates,
		resolvePath(baseURL, "/sitemap.xml"),
		resolvePath(baseURL, "/sitemap_index.xml"),
	)

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

// expand fetches one sitemap and returns its page URLs, recursing one level
// into sitemap indexes.
func (r *SitemapResolver) expand(ctx context.Context, sitemapURL string) []string {
	emitf(r.emitter, "info", "Sitemap: %s", sitemapURL)

	text := r.fetcher.FetchText(ctx, sitemapURL, sitemapContentTypes)
	if text == "" {
		return nil
	}

	switch {
	case strings.Contains(text, "<sitemapindex"):
		children := extractLocs(text)
		emitf(r.emitter, "info", "Found sitemap index with %d child sitemaps", len(children))
		var urls []string
		for _, child := range children {
			ctext := r.fetcher.FetchText(ctx, child, sitemapContentTypes)
			if ctext != "" && strings.Contains(ctext, "<urlset") {
				urls = append(urls, extractLocs(ctext)...)
			}
		}
		return urls
	case strings.Contains(text, "<urlset"):
		urls := extractLocs(text)
		emitf(r.emitter, "info", "Found %d URLs in sitemap", len(urls))
		return urls
	}
	return nil
}

// extractLocs scans for <loc> entries with a tolerant regex rather than
// strict XML parsing, so malformed sitemaps degrade to fewer seeds instead
// of failing the run.
func extractLocs(sitemapXML string) []string {
	matches := locPattern.FindAllStringSubmatch(sitemapXML, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, strings.TrimSpace(m[1]))
	}
	return urls
}

func resolvePath(baseURL, path string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return baseURL + path
	}
	return parsed.ResolveReference(ref).String()
}

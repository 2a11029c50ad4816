package crawler

import (
	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns all navigable links on the page, normalized against
// baseURL, in document order.
func ExtractLinks(doc *goquery.Document, baseURL string) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !IsNavigable(href) {
			return
		}
		if norm := NormalizeURL(baseURL, href); norm != "" {
			links = append(links, norm)
		}
	})
	return links
}

package crawler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Sitemark/1.0 (+https://github.com/ternarybob/sitemark)"

// maxFetchBytes caps how much of a response body is read, bounding memory on
// pathological pages.
const maxFetchBytes = 10 << 20

// Fetcher retrieves text content over HTTP with rate limiting, content-type
// gating and encoding repair. All failures are non-fatal: the caller gets ""
// and the reason is emitted as a warning.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	emitter   Emitter
}

func NewFetcher(timeout time.Duration, rateLimit time.Duration, userAgent string, emitter Emitter) *Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if emitter == nil {
		emitter = NopEmitter()
	}

	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Every(rateLimit)
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
		emitter:   emitter,
	}
}

// FetchText retrieves url and returns the decoded body. Returns "" when the
// request fails, the status is >= 400, or the content-type does not match
// the allow-list. An empty allow-list accepts any content type.
func (f *Fetcher) FetchText(ctx context.Context, url string, allowedContentTypes []string) string {
	if err := f.limiter.Wait(ctx); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		emitf(f.emitter, "warn", "Request failed %s: %v", url, err)
		return ""
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		emitf(f.emitter, "warn", "Request failed %s: %v", url, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		emitf(f.emitter, "warn", "HTTP %d: %s", resp.StatusCode, url)
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if len(allowedContentTypes) > 0 && !contentTypeAllowed(contentType, allowedContentTypes) {
		emitf(f.emitter, "warn", "Unexpected content-type %s: %s", contentType, url)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		emitf(f.emitter, "warn", "Read failed %s: %v", url, err)
		return ""
	}

	text, err := decodeBody(body, contentType)
	if err != nil {
		emitf(f.emitter, "warn", "Decode failed %s: %v", url, err)
		return ""
	}
	return text
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	lower := strings.ToLower(contentType)
	for _, t := range allowed {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// decodeBody converts the response body to UTF-8. Servers that declare no
// charset, or claim ISO-8859-1 by default, frequently serve something else;
// in those cases the declared charset is ignored and the encoding is sniffed
// from the content instead.
func decodeBody(body []byte, contentType string) (string, error) {
	declared := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		declared = strings.ToLower(params["charset"])
	}

	sniffHint := contentType
	if declared == "" || declared == "iso-8859-1" || declared == "latin1" {
		sniffHint = ""
	}

	enc, _, _ := charset.DetermineEncoding(body, sniffHint)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body), nil
	}
	return string(decoded), nil
}

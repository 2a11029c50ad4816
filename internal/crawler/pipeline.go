package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/pkg/models"
)

// PipelineDeps are the collaborators a crawl run depends on. LLM is
// required; everything else is optional.
type PipelineDeps struct {
	LLM         interfaces.LLMService
	Screenshots interfaces.Screenshotter
	Pages       interfaces.PageStorage
	Emitter     Emitter

	// JobID tags stored page history when the run belongs to a job.
	JobID string
	// OnPageComplete is called after each page's manifest entry is
	// persisted.
	OnPageComplete func(done int, url string)
}

// Pipeline executes one crawl run: seed, traverse, extract, submit, persist.
// Page processing is strictly sequential; concurrency exists only across
// independent runs, which share no state.
type Pipeline struct {
	target models.CrawlTarget
	deps   PipelineDeps

	fetcher   *Fetcher
	resolver  *SitemapResolver
	generator *SchemaGenerator
	markdown  *md.Converter
	emitter   Emitter
}

// RunResult summarizes a completed crawl run.
type RunResult struct {
	PagesProcessed int
	OutputDir      string
}

func NewPipeline(target models.CrawlTarget, deps PipelineDeps) (*Pipeline, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("pipeline requires an LLM service: %w", interfaces.ErrMissingAPIKey)
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = NopEmitter()
	}

	fetcher := NewFetcher(target.Timeout, target.RateLimit, target.UserAgent, emitter)

	return &Pipeline{
		target:    target,
		deps:      deps,
		fetcher:   fetcher,
		resolver:  NewSitemapResolver(fetcher, emitter),
		generator: NewSchemaGenerator(deps.LLM, emitter),
		markdown:  md.NewConverter("", true, nil),
		emitter:   emitter,
	}, nil
}

// Run crawls the target until the frontier empties, the page budget is
// reached, or ctx is cancelled. Cancellation is honored between pages; the
// in-flight page always completes or fails as a unit.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	output, err := NewRunOutput(p.target.OutputDir, p.target.SaveOutline)
	if err != nil {
		return nil, err
	}

	emitf(p.emitter, "info", "Base: %s", p.target.BaseURL)
	emitf(p.emitter, "info", "Max pages: %d  Rate: %s", p.target.MaxPages, p.target.RateLimit)

	seeds := p.resolver.Resolve(ctx, p.target.BaseURL, p.target.SitemapURL)
	emitf(p.emitter, "info", "Seed queue size: %d", len(seeds))

	frontier := NewFrontier(seeds)
	count := 0

	for count < p.target.MaxPages {
		select {
		case <-ctx.Done():
			p.emitter.Emit("warn", "Crawl cancelled; stopping before next page")
			return p.finish(output, count)
		default:
		}

		url, ok := frontier.Next()
		if !ok {
			break
		}
		if !SameSite(url, p.target.BaseURL, p.target.AllowSubdomains) {
			continue
		}

		if p.processPage(ctx, url, frontier, output) {
			count++
			emitf(p.emitter, "info", "[%d/%d] Saved: %s", count, p.target.MaxPages, url)
			if p.deps.OnPageComplete != nil {
				p.deps.OnPageComplete(count, url)
			}
		}
	}

	return p.finish(output, count)
}

func (p *Pipeline) finish(output *RunOutput, count int) (*RunResult, error) {
	if err := output.WriteIndex(); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	emitf(p.emitter, "info", "Wrote index with %d entries", count)
	return &RunResult{PagesProcessed: count, OutputDir: output.Root()}, nil
}

// processPage runs the per-page stages for one URL and reports whether a
// manifest entry was written. All per-page buffers are scoped to this call
// and eligible for reclamation once it returns.
func (p *Pipeline) processPage(ctx context.Context, url string, frontier *Frontier, output *RunOutput) bool {
	pageHTML := p.fetcher.FetchText(ctx, url, []string{"text/html"})
	if pageHTML == "" {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		emitf(p.emitter, "warn", "Parse failed %s: %v", url, err)
		return false
	}

	title, text := ExtractContent(doc, url)
	outline := BuildOutline(doc)
	slug := SlugFromURL(url)

	var screenshot []byte
	if p.target.UseVision && p.deps.Screenshots != nil {
		emitf(p.emitter, "info", "Capturing screenshot for %s", url)
		screenshot, err = p.deps.Screenshots.Capture(ctx, url, p.target.Timeout)
		if err != nil {
			emitf(p.emitter, "warn", "Screenshot capture failed for %s, continuing without vision: %v", url, err)
			screenshot = nil
		} else {
			emitf(p.emitter, "info", "Screenshot captured (%d bytes PNG)", len(screenshot))
		}
	}

	schema := p.generateSchema(ctx, url, title, outline, text, screenshot, output, slug)

	if err := output.WriteOutline(slug, outline); err != nil {
		emitf(p.emitter, "warn", "Failed to save outline for %s: %v", url, err)
	}

	record := models.PageRecord{
		URL:           url,
		Title:         title,
		ExtractedText: text,
		SchemaJSONLD:  schema,
	}
	if err := output.WritePage(slug, record); err != nil {
		emitf(p.emitter, "error", "Failed to persist %s: %v", url, err)
		return false
	}

	p.storePageHistory(ctx, url, title, pageHTML, schema)

	for _, link := range ExtractLinks(doc, url) {
		if SameSite(link, p.target.BaseURL, p.target.AllowSubdomains) {
			frontier.Push(link)
		}
	}
	return true
}

// generateSchema submits the page through the size-backoff loop. Any failure
// degrades to a minimal WebPage record; page-level errors never end the run.
func (p *Pipeline) generateSchema(ctx context.Context, url, title string, outline models.Outline, text string, screenshot []byte, output *RunOutput, slug string) json.RawMessage {
	p.generator.OnPrompt = func(systemText, userText string) {
		if err := output.WritePromptDump(slug, systemText, userText, len(screenshot)); err != nil {
			emitf(p.emitter, "warn", "Failed to save prompt dump for %s: %v", url, err)
		}
	}

	state := NewPromptState(outline, text, screenshot)
	schema, err := p.generator.Generate(ctx, url, title, state)
	if err != nil {
		emitf(p.emitter, "error", "Schema generation failed for %s, using fallback: %v", url, err)
		return fallbackSchema(title, url)
	}
	return SanitizeSchema(schema)
}

// storePageHistory records the page in durable history storage when a page
// store is attached. Best effort; failures are logged only.
func (p *Pipeline) storePageHistory(ctx context.Context, url, title, pageHTML string, schema json.RawMessage) {
	if p.deps.Pages == nil {
		return
	}

	contentMD, err := p.markdown.ConvertString(pageHTML)
	if err != nil {
		emitf(p.emitter, "warn", "Markdown conversion failed for %s: %v", url, err)
		contentMD = ""
	}

	page := &models.StoredPage{
		ID:           uuid.New().String(),
		JobID:        p.deps.JobID,
		URL:          url,
		PathKey:      PathKey(url),
		Title:        title,
		ContentMD:    contentMD,
		SchemaJSONLD: schema,
		CrawledAt:    time.Now().UTC(),
	}
	if err := p.deps.Pages.SavePage(ctx, page); err != nil {
		emitf(p.emitter, "warn", "Failed to store page history for %s: %v", url, err)
	}
}

func fallbackSchema(title, url string) json.RawMessage {
	fallback := map[string]string{
		"@context": "https://schema.org",
		"@type":    "WebPage",
		"name":     title,
		"url":      url,
	}
	data, err := json.Marshal(fallback)
	if err != nil {
		return json.RawMessage(`{"@context":"https://schema.org","@type":"WebPage"}`)
	}
	return data
}

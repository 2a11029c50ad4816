package models

import (
	"encoding/json"
	"time"
)

// CrawlTarget describes one crawl run. It is built once, validated, and
// never mutated while the run is in flight.
type CrawlTarget struct {
	BaseURL         string        `json:"base_url" toml:"base_url" validate:"required,url"`
	SitemapURL      string        `json:"sitemap_url,omitempty" toml:"sitemap_url" validate:"omitempty,url"`
	OutputDir       string        `json:"output_dir,omitempty" toml:"output_dir"`
	MaxPages        int           `json:"max_pages" toml:"max_pages" validate:"gte=0"`
	RateLimit       time.Duration `json:"rate_limit" toml:"rate_limit"`
	Timeout         time.Duration `json:"timeout" toml:"timeout"`
	AllowSubdomains bool          `json:"allow_subdomains" toml:"allow_subdomains"`
	Model           string        `json:"model,omitempty" toml:"model"`
	APIKey          string        `json:"-" toml:"api_key"`
	UserAgent       string        `json:"user_agent,omitempty" toml:"user_agent"`
	UseVision       bool          `json:"use_vision" toml:"use_vision"`
	SaveOutline     bool          `json:"save_outline" toml:"save_outline"`
}

// Heading is one heading element in document order.
type Heading struct {
	Tag   string `json:"tag"`
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Section is a heading together with the text of the block content that
// follows it, up to the next heading of equal or shallower level. The
// synthetic "Intro" section carries level 0 and "Outro" level 7 so a
// consumer can reconstruct document order without re-parsing HTML.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// Outline is the structured summary of a page, distinct from its raw
// flattened text. Built fresh per page and never mutated afterwards.
type Outline struct {
	Meta     map[string]string `json:"meta"`
	Headings []Heading         `json:"headings"`
	Sections []Section         `json:"sections"`
}

// PageRecord is the per-page output written alongside the manifest.
type PageRecord struct {
	URL           string          `json:"url"`
	Title         string          `json:"title"`
	ExtractedText string          `json:"extracted_text"`
	SchemaJSONLD  json.RawMessage `json:"schema_jsonld"`
}

// IndexEntry is one row of the run-level index.json.
type IndexEntry struct {
	URL        string `json:"url"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	SchemaPath string `json:"schema_path"`
}

// StoredPage is the badger-persisted history record for one crawled page.
// ContentMD is a markdown rendition kept for search and later inspection.
type StoredPage struct {
	ID           string          `json:"id" badgerhold:"key"`
	JobID        string          `json:"job_id" badgerholdIndex:"JobID"`
	URL          string          `json:"url"`
	PathKey      string          `json:"path_key"`
	Title        string          `json:"title"`
	ContentMD    string          `json:"content_md"`
	SchemaJSONLD json.RawMessage `json:"schema_jsonld"`
	CrawledAt    time.Time       `json:"crawled_at"`
}

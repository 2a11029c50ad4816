package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/sitemark/pkg/models"
)

// RunOutput owns the on-disk layout of one crawl run: per-page records under
// pages/, prompt dumps under prompts/, optional outlines under analysis/,
// a master index, and the path-keyed manifest. The manifest is persisted
// after every page so a crash loses at most the in-flight page.
type RunOutput struct {
	root        string
	pagesDir    string
	promptsDir  string
	analysisDir string
	saveOutline bool

	manifest map[string]json.RawMessage
	index    []models.IndexEntry
}

func NewRunOutput(root string, saveOutline bool) (*RunOutput, error) {
	o := &RunOutput{
		root:        root,
		pagesDir:    filepath.Join(root, "pages"),
		promptsDir:  filepath.Join(root, "prompts"),
		analysisDir: filepath.Join(root, "analysis"),
		saveOutline: saveOutline,
		manifest:    make(map[string]json.RawMessage),
	}

	dirs := []string{root, o.pagesDir, o.promptsDir}
	if saveOutline {
		dirs = append(dirs, o.analysisDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	return o, nil
}

// WritePromptDump records the exact prompt text sent for a page, named by
// its slug, before the request goes out.
func (o *RunOutput) WritePromptDump(slug, systemText, userText string, screenshotBytes int) error {
	content := "SYSTEM:\n" + systemText + "\n\nUSER:\n" + userText + "\n"
	if screenshotBytes > 0 {
		content += fmt.Sprintf("\n[NOTE: Screenshot was also included (%d bytes PNG)]\n", screenshotBytes)
		content += "[The actual API call included the screenshot as an image block]\n"
	}
	return os.WriteFile(filepath.Join(o.promptsDir, slug+".txt"), []byte(content), 0o644)
}

// WriteOutline persists a page's outline for audit when enabled. The outline
// is never embedded in the page record itself.
func (o *RunOutput) WriteOutline(slug string, outline models.Outline) error {
	if !o.saveOutline {
		return nil
	}
	data, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(o.analysisDir, slug+".outline.json"), data, 0o644)
}

// WritePage persists one completed page: its record under pages/, its index
// entry, and its manifest entry keyed by normalized path. The manifest files
// are rewritten immediately, not batched.
func (o *RunOutput) WritePage(slug string, record models.PageRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page record: %w", err)
	}
	pagePath := filepath.Join(o.pagesDir, slug+".json")
	if err := os.WriteFile(pagePath, data, 0o644); err != nil {
		return fmt.Errorf("write page record: %w", err)
	}

	o.index = append(o.index, models.IndexEntry{
		URL:        record.URL,
		Slug:       slug,
		Title:      record.Title,
		SchemaPath: "pages/" + slug + ".json",
	})

	o.manifest[PathKey(record.URL)] = record.SchemaJSONLD
	return o.persistManifest()
}

// persistManifest writes manifest.json and its plain-text mirror (identical
// content, for upload targets that reject .json files). Writes go through a
// temp file and rename so a crash never leaves a half-written manifest.
func (o *RunOutput) persistManifest() error {
	data, err := json.MarshalIndent(o.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	for _, name := range []string{"manifest.json", "manifest.txt"} {
		if err := writeFileAtomic(filepath.Join(o.root, name), data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// WriteIndex persists the master index of all pages processed this run.
func (o *RunOutput) WriteIndex() error {
	entries := o.index
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return writeFileAtomic(filepath.Join(o.root, "index.json"), data)
}

// Manifest returns the current path-keyed manifest contents.
func (o *RunOutput) Manifest() map[string]json.RawMessage {
	return o.manifest
}

// PageCount reports how many pages have been written this run.
func (o *RunOutput) PageCount() int {
	return len(o.index)
}

// Root returns the run's output directory.
func (o *RunOutput) Root() string {
	return o.root
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

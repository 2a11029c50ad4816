package crawler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/sitemark/pkg/models"
)

func newTestOutput(t *testing.T, saveOutline bool) *RunOutput {
	t.Helper()
	out, err := NewRunOutput(filepath.Join(t.TempDir(), "run"), saveOutline)
	require.NoError(t, err)
	return out
}

func pageRecord(url, title string, schema string) models.PageRecord {
	return models.PageRecord{
		URL:          url,
		Title:        title,
		SchemaJSONLD: json.RawMessage(schema),
	}
}

func TestNewRunOutput_CreatesLayout(t *testing.T) {
	out := newTestOutput(t, true)

	for _, dir := range []string{"pages", "prompts", "analysis"} {
		info, err := os.Stat(filepath.Join(out.Root(), dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestNewRunOutput_AnalysisDirSkippedWhenDisabled(t *testing.T) {
	out := newTestOutput(t, false)

	_, err := os.Stat(filepath.Join(out.Root(), "analysis"))
	assert.True(t, os.IsNotExist(err))
}

func TestWritePage_PersistsRecordAndManifest(t *testing.T) {
	out := newTestOutput(t, false)

	err := out.WritePage("example-com-about", pageRecord(
		"https://example.com/about", "About", `{"@type":"AboutPage"}`))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out.Root(), "pages", "example-com-about.json"))
	require.NoError(t, err)
	var record models.PageRecord
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "https://example.com/about", record.URL)

	manifest := readManifest(t, out.Root())
	require.Contains(t, manifest, "/about")
	assert.JSONEq(t, `{"@type":"AboutPage"}`, string(manifest["/about"]))
}

func TestWritePage_ManifestMirrorsIdentical(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WritePage("example-com", pageRecord(
		"https://example.com/", "Home", `{"@type":"WebPage"}`)))

	jsonBytes, err := os.ReadFile(filepath.Join(out.Root(), "manifest.json"))
	require.NoError(t, err)
	txtBytes, err := os.ReadFile(filepath.Join(out.Root(), "manifest.txt"))
	require.NoError(t, err)
	assert.Equal(t, jsonBytes, txtBytes)
}

func TestWritePage_LastWriteWinsPerPath(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WritePage("a", pageRecord(
		"https://example.com/page", "First", `{"name":"first"}`)))
	require.NoError(t, out.WritePage("b", pageRecord(
		"https://example.com/page", "Second", `{"name":"second"}`)))

	manifest := readManifest(t, out.Root())
	require.Len(t, manifest, 1)
	assert.JSONEq(t, `{"name":"second"}`, string(manifest["/page"]))
	assert.Equal(t, 2, out.PageCount())
}

func TestWritePage_ManifestPersistedIncrementally(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WritePage("one", pageRecord(
		"https://example.com/one", "One", `{}`)))

	// Visible on disk before the run finishes.
	manifest := readManifest(t, out.Root())
	assert.Contains(t, manifest, "/one")
}

func TestWriteIndex_EmptyRunWritesEmptyArray(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WriteIndex())

	data, err := os.ReadFile(filepath.Join(out.Root(), "index.json"))
	require.NoError(t, err)
	var entries []models.IndexEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestWriteIndex_EntriesInProcessingOrder(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WritePage("first", pageRecord("https://example.com/x", "X", `{}`)))
	require.NoError(t, out.WritePage("second", pageRecord("https://example.com/y", "Y", `{}`)))
	require.NoError(t, out.WriteIndex())

	data, err := os.ReadFile(filepath.Join(out.Root(), "index.json"))
	require.NoError(t, err)
	var entries []models.IndexEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Slug)
	assert.Equal(t, "second", entries[1].Slug)
	assert.Equal(t, "pages/first.json", entries[0].SchemaPath)
}

func TestWritePromptDump_IncludesScreenshotNote(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WritePromptDump("slug", "system text", "user text", 2048))

	data, err := os.ReadFile(filepath.Join(out.Root(), "prompts", "slug.txt"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "SYSTEM:\nsystem text")
	assert.Contains(t, content, "USER:\nuser text")
	assert.Contains(t, content, "2048 bytes PNG")
}

func TestWriteOutline_NoopWhenDisabled(t *testing.T) {
	out := newTestOutput(t, false)

	require.NoError(t, out.WriteOutline("slug", models.Outline{}))

	_, err := os.Stat(filepath.Join(out.Root(), "analysis"))
	assert.True(t, os.IsNotExist(err))
}

func readManifest(t *testing.T, root string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "manifest.json"))
	require.NoError(t, err)
	var manifest map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &manifest))
	return manifest
}

func TestManifest_ReflectsWrittenPages(t *testing.T) {
	out := newTestOutput(t, false)
	assert.Empty(t, out.Manifest())

	require.NoError(t, out.WritePage("example-com", pageRecord(
		"https://example.com/", "Home", `{"@type":"WebPage"}`)))
	require.NoError(t, out.WritePage("example-com-about", pageRecord(
		"https://example.com/about", "About", `{"@type":"AboutPage"}`)))

	manifest := out.Manifest()
	require.Len(t, manifest, 2)
	assert.JSONEq(t, `{"@type":"WebPage"}`, string(manifest["/"]))
	assert.JSONEq(t, `{"@type":"AboutPage"}`, string(manifest["/about"]))
	assert.Equal(t, 2, out.PageCount())
}

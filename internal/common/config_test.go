package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitemark.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefaultConfig_Defaults(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 500, config.Crawler.MaxPages)
	assert.Equal(t, 500*time.Millisecond, config.Crawler.RateLimit)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, "claude-haiku-3-5-20241022", config.Claude.Model)
	assert.Equal(t, "gemini-2.0-flash", config.Gemini.Model)
	assert.True(t, config.Crawler.UseVision)
}

func TestLoadFromFiles_NoFilesUsesDefaults(t *testing.T) {
	config, err := LoadFromFiles()

	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadFromFiles_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090

[crawler]
max_pages = 25
`)

	config, err := LoadFromFiles(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 25, config.Crawler.MaxPages)
	// Untouched values keep their defaults.
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	first := writeConfigFile(t, "[server]\nport = 9090\n")
	second := writeConfigFile(t, "[server]\nport = 7070\n")

	config, err := LoadFromFiles(first, second)

	require.NoError(t, err)
	assert.Equal(t, 7070, config.Server.Port)
}

func TestLoadFromFiles_EmptyPathSkipped(t *testing.T) {
	config, err := LoadFromFiles("", "")

	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadFromFiles_MissingFileErrors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))

	assert.Error(t, err)
}

func TestLoadFromFiles_MalformedTOMLErrors(t *testing.T) {
	path := writeConfigFile(t, "not = [valid")

	_, err := LoadFromFiles(path)

	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "[server]\nport = 9090\n")
	t.Setenv("SITEMARK_SERVER_PORT", "6060")
	t.Setenv("SITEMARK_CRAWLER_MAX_PAGES", "3")
	t.Setenv("SITEMARK_CRAWLER_RATE_LIMIT", "2s")

	config, err := LoadFromFiles(path)

	require.NoError(t, err)
	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, 3, config.Crawler.MaxPages)
	assert.Equal(t, 2*time.Second, config.Crawler.RateLimit)
}

func TestLoadFromFiles_PrefixedKeyBeatsProviderKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "provider-key")
	t.Setenv("SITEMARK_CLAUDE_API_KEY", "prefixed-key")

	config, err := LoadFromFiles()

	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", config.Claude.APIKey)
}

func TestLoadFromFiles_ScheduleValidation(t *testing.T) {
	path := writeConfigFile(t, `
[[schedules]]
name = "nightly"
schedule = "0 2 * * *"
base_url = "not a url"
`)

	_, err := LoadFromFiles(path)

	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 5000, "0.0.0.0")

	assert.Equal(t, 5000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestApplyFlagOverrides_ZeroValuesIgnored(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = "prod"
	assert.True(t, config.IsProduction())
}

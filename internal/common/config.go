package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Schedules   []ScheduleConfig `toml:"schedules"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// CrawlerConfig contains the per-run crawl defaults. Individual targets
// may override any of these.
type CrawlerConfig struct {
	UserAgent          string        `toml:"user_agent"`
	OutputDir          string        `toml:"output_dir"`           // Root for per-job output directories
	MaxPages           int           `toml:"max_pages"`            // Page budget per run
	RateLimit          time.Duration `toml:"rate_limit"`           // Delay applied after every request
	RequestTimeout     time.Duration `toml:"request_timeout"`      // Per-request timeout
	AllowSubdomains    bool          `toml:"allow_subdomains"`     // Crawl scope includes subdomains
	UseVision          bool          `toml:"use_vision"`           // Attach page screenshots to LLM requests
	SaveOutline        bool          `toml:"save_outline"`         // Dump per-page outline JSON for audit
	ScreenshotWaitTime time.Duration `toml:"screenshot_wait_time"` // Settle time before capture
}

// LLMProvider represents the AI provider type.
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig selects the content-understanding provider.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" or "gemini" (default: "claude")
}

// ClaudeConfig contains Anthropic Claude API configuration.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`  // default: 8192
	Timeout     string  `toml:"timeout"`     // duration string, default: "2m"
	Temperature float32 `toml:"temperature"` // default: 0.2
}

// GeminiConfig contains Google Gemini API configuration.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"`     // duration string, default: "2m"
	Temperature float32 `toml:"temperature"` // default: 0.2
}

// ScheduleConfig is one cron-driven re-crawl entry.
type ScheduleConfig struct {
	Name     string `toml:"name"`
	Schedule string `toml:"schedule" validate:"required"` // Cron expression
	BaseURL  string `toml:"base_url" validate:"required,url"`
	MaxPages int    `toml:"max_pages"`
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Crawler: CrawlerConfig{
			UserAgent:          "Sitemark/1.0 (+https://github.com/ternarybob/sitemark)",
			OutputDir:          "./output",
			MaxPages:           500,
			RateLimit:          500 * time.Millisecond,
			RequestTimeout:     20 * time.Second,
			AllowSubdomains:    false,
			UseVision:          true,
			SaveOutline:        false,
			ScreenshotWaitTime: 2 * time.Second,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			Temperature: 0.2,
		},
	}
}

// UserConfigPath returns the per-user config file consulted last in the
// API key resolution order.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sitemark", "config.toml")
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct validation tags.
func Validate(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SITEMARK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SITEMARK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SITEMARK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("SITEMARK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage configuration
	if badgerPath := os.Getenv("SITEMARK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Crawler configuration
	if userAgent := os.Getenv("SITEMARK_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if outputDir := os.Getenv("SITEMARK_CRAWLER_OUTPUT_DIR"); outputDir != "" {
		config.Crawler.OutputDir = outputDir
	}
	if maxPages := os.Getenv("SITEMARK_CRAWLER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Crawler.MaxPages = mp
		}
	}
	if rateLimit := os.Getenv("SITEMARK_CRAWLER_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.Crawler.RateLimit = rl
		}
	}
	if requestTimeout := os.Getenv("SITEMARK_CRAWLER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Crawler.RequestTimeout = rt
		}
	}
	if allowSubdomains := os.Getenv("SITEMARK_CRAWLER_ALLOW_SUBDOMAINS"); allowSubdomains != "" {
		if as, err := strconv.ParseBool(allowSubdomains); err == nil {
			config.Crawler.AllowSubdomains = as
		}
	}
	if useVision := os.Getenv("SITEMARK_CRAWLER_USE_VISION"); useVision != "" {
		if uv, err := strconv.ParseBool(useVision); err == nil {
			config.Crawler.UseVision = uv
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SITEMARK_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SITEMARK_ prefix takes priority
	}
	if model := os.Getenv("SITEMARK_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if timeout := os.Getenv("SITEMARK_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}

	// Gemini configuration
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("SITEMARK_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SITEMARK_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// LLM provider configuration
	if provider := os.Getenv("SITEMARK_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have the highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

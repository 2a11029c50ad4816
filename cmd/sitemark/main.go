package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/crawler"
	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/internal/jobs"
	"github.com/ternarybob/sitemark/internal/server"
	"github.com/ternarybob/sitemark/internal/services/events"
	"github.com/ternarybob/sitemark/internal/services/llm"
	"github.com/ternarybob/sitemark/internal/services/scheduler"
	"github.com/ternarybob/sitemark/internal/services/screenshot"
	"github.com/ternarybob/sitemark/internal/storage/badger"
	"github.com/ternarybob/sitemark/pkg/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths

	serve       = flag.Bool("serve", false, "Run the HTTP job server instead of a one-shot crawl")
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	// One-shot crawl flags
	baseURL         = flag.String("base-url", "", "Root URL to crawl")
	sitemapURL      = flag.String("sitemap-url", "", "Optional sitemap URL override")
	outputDir       = flag.String("output-dir", "./output", "Directory for crawl outputs")
	maxPages        = flag.Int("max-pages", 0, "Max pages to process (overrides config)")
	rateLimit       = flag.Float64("rate-limit", 0, "Seconds to sleep between requests (overrides config)")
	timeout         = flag.Int("timeout", 0, "Per-request timeout in seconds (overrides config)")
	userAgent       = flag.String("user-agent", "", "Custom User-Agent header")
	allowSubdomains = flag.Bool("allow-subdomains", false, "Also crawl subdomains")
	model           = flag.String("model", "", "Model identifier for schema generation")
	apiKey          = flag.String("api-key", "", "API key override (takes precedence over env and config)")
	noVision        = flag.Bool("no-vision", false, "Disable screenshot capture and vision input")
	saveOutline     = flag.Bool("save-outline", false, "Save structured outlines to output/analysis/")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Sitemark version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover a project config next to the working directory.
	if len(configFiles) == 0 {
		if _, err := os.Stat("sitemark.toml"); err == nil {
			configFiles = append(configFiles, "sitemark.toml")
		}
	}
	// The user config file participates with lowest file priority.
	if userCfg := common.UserConfigPath(); userCfg != "" {
		if _, err := os.Stat(userCfg); err == nil {
			configFiles = append([]string{userCfg}, configFiles...)
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if *serve {
		runServer(config, logger)
		return
	}
	runOnce(config, logger)
}

// runOnce executes a single crawl in the foreground and exits.
func runOnce(config *common.Config, logger arbor.ILogger) {
	if *baseURL == "" {
		logger.Fatal().Msg("-base-url is required (or use -serve for the job server)")
		os.Exit(1)
	}

	target := models.CrawlTarget{
		BaseURL:         *baseURL,
		SitemapURL:      *sitemapURL,
		OutputDir:       *outputDir,
		MaxPages:        config.Crawler.MaxPages,
		RateLimit:       config.Crawler.RateLimit,
		Timeout:         config.Crawler.RequestTimeout,
		AllowSubdomains: *allowSubdomains,
		Model:           *model,
		APIKey:          *apiKey,
		UserAgent:       config.Crawler.UserAgent,
		UseVision:       config.Crawler.UseVision && !*noVision,
		SaveOutline:     *saveOutline || config.Crawler.SaveOutline,
	}
	if *maxPages > 0 {
		target.MaxPages = *maxPages
	}
	if *rateLimit > 0 {
		target.RateLimit = time.Duration(*rateLimit * float64(time.Second))
	}
	if *timeout > 0 {
		target.Timeout = time.Duration(*timeout) * time.Second
	}
	if *userAgent != "" {
		target.UserAgent = *userAgent
	}

	// Missing credentials abort here, before any fetch.
	llmService, err := llm.NewLLMService(config, target.APIKey, target.Model, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Schema generation requires an API key")
		os.Exit(1)
	}
	defer llmService.Close()

	var screenshots interfaces.Screenshotter
	if target.UseVision {
		if svc, err := screenshot.NewService(target.UserAgent, logger); err != nil {
			logger.Warn().Err(err).Msg("Headless browser unavailable, continuing without vision")
		} else {
			screenshots = svc
			defer svc.Close()
		}
	}

	// Stop dequeuing further pages on Ctrl+C; the in-flight page completes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := crawler.NewPipeline(target, crawler.PipelineDeps{
		LLM:         llmService,
		Screenshots: screenshots,
		Emitter:     crawler.LogEmitter(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build crawl pipeline")
		os.Exit(1)
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Crawl failed")
		os.Exit(1)
	}

	logger.Info().
		Int("pages", result.PagesProcessed).
		Str("output_dir", result.OutputDir).
		Msg("Crawl complete")
}

// runServer starts the job API, websocket progress stream, and scheduler.
func runServer(config *common.Config, logger arbor.ILogger) {
	storageManager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
		os.Exit(1)
	}
	defer storageManager.Close()

	eventService := events.NewService(logger)
	defer eventService.Close()

	var screenshots interfaces.Screenshotter
	if config.Crawler.UseVision {
		if svc, err := screenshot.NewService(config.Crawler.UserAgent, logger); err != nil {
			logger.Warn().Err(err).Msg("Headless browser unavailable, jobs will run without vision")
		} else {
			screenshots = svc
			defer svc.Close()
		}
	}

	manager := jobs.NewManager(config, storageManager, eventService, screenshots, logger)
	defer manager.Close()

	sched := scheduler.NewService(manager, logger)
	sched.Register(config.Schedules)
	sched.Start()
	defer sched.Stop()

	srv, err := server.New(config, manager, eventService, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize HTTP server")
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
			os.Exit(1)
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

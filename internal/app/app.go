package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/stance/internal/clients/claude"
	"github.com/bobmcallan/stance/internal/clients/gemini"
	"github.com/bobmcallan/stance/internal/clients/openai"
	"github.com/bobmcallan/stance/internal/clients/provider"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/engine"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/resilience"
	"github.com/bobmcallan/stance/internal/services/analysis"
	"github.com/bobmcallan/stance/internal/services/llm"
	"github.com/bobmcallan/stance/internal/services/merger"
	"github.com/bobmcallan/stance/internal/services/registry"
	"github.com/bobmcallan/stance/internal/services/report"
	"github.com/bobmcallan/stance/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by both cmd/stance-server and cmd/stance-cli.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         *storage.Manager
	Provider        interfaces.RawDataProvider
	Resilience      *resilience.Registry
	Orchestrator    *llm.Orchestrator
	AnalysisService interfaces.AnalysisService
	SearchService   interfaces.SearchService
	ExportService   interfaces.ExportService
	MCPServer       *server.MCPServer
	StartupTime     time.Time

	scheduler       *cron.Cron
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath applies the lookup order: explicit path, STANCE_CONFIG,
// stance.toml beside the binary, then config/stance.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("STANCE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "stance.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stance.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig wires the application from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	storageManager, err := storage.NewManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	tiered := storageManager.Cache()

	companies, err := registry.NewService(config.Registry.File, tiered, config.Cache.GetSearchTTL(), logger)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	benchmarker, err := engine.LoadBenchmarker(config.Benchmarks.File)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	breakers := resilience.NewRegistry(logger)
	dataProvider := newProvider(config.Provider, logger)
	orchestrator := llm.NewOrchestrator(
		newBackends(ctx, config.LLM, logger),
		llm.RoutesFromConfig(config.LLM.Perspectives),
		breakers,
		config.Resilience.LLM,
		config.LLM.GetJoinTimeout(),
		logger,
	)
	if !orchestrator.Enabled() {
		logger.Warn().Msg("No LLM API keys configured - AI insights will be disabled")
	}

	analysisService := analysis.NewService(
		dataProvider,
		breakers.Register("provider", config.Resilience.Provider),
		merger.NewMerger(companies),
		benchmarker,
		orchestrator,
		tiered,
		analysis.Config{
			AnalysisTTL:    config.Cache.GetAnalysisTTL(),
			InsightsTTL:    config.Cache.GetInsightsTTL(),
			RequestTimeout: config.Server.GetRequestTimeout(),
			Scoring:        engine.Options{BenchmarkAdjust: config.Benchmarks.Adjust},
		},
		logger,
	)
	exportService := report.NewService(analysisService, logger)

	mcpServer := server.NewMCPServer(
		"stance",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		Provider:        dataProvider,
		Resilience:      breakers,
		Orchestrator:    orchestrator,
		AnalysisService: analysisService,
		SearchService:   companies,
		ExportService:   exportService,
		MCPServer:       mcpServer,
		StartupTime:     startupStart,
	}

	a.registerTools()

	logger.Info().
		Str("provider", dataProvider.Name()).
		Strs("llm_backends", orchestrator.Backends()).
		Int("companies", companies.Count()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

func newProvider(cfg common.ProviderConfig, logger *common.Logger) interfaces.RawDataProvider {
	if cfg.Type == "http" {
		return provider.NewHTTPProvider(cfg.BaseURL,
			provider.WithAPIKey(cfg.APIKey),
			provider.WithLogger(logger),
			provider.WithRateLimit(cfg.RateLimit),
			provider.WithTimeout(cfg.GetTimeout()),
		)
	}
	return provider.NewFileProvider(cfg.FixturesDir)
}

// newBackends builds a client for every backend with an API key, in
// fallback preference order.
func newBackends(ctx context.Context, cfg common.LLMConfig, logger *common.Logger) []interfaces.LLMBackend {
	var backends []interfaces.LLMBackend

	if key, err := common.ResolveAPIKey("gemini_api_key", cfg.Gemini.APIKey); err == nil {
		client, err := gemini.NewClient(ctx, key,
			gemini.WithLogger(logger),
			gemini.WithModel(cfg.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			backends = append(backends, client)
		}
	}

	if key, err := common.ResolveAPIKey("claude_api_key", cfg.Claude.APIKey); err == nil {
		backends = append(backends, claude.NewClient(key,
			claude.WithLogger(logger),
			claude.WithModel(cfg.Claude.Model),
			claude.WithMaxTokens(cfg.Claude.MaxTokens),
		))
	}

	if key, err := common.ResolveAPIKey("openai_api_key", cfg.OpenAI.APIKey); err == nil {
		client, err := openai.NewClient(ctx, openai.Config{
			APIKey:    key,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize OpenAI-compatible client")
		} else {
			backends = append(backends, client)
		}
	}

	return backends
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, cancel warm cache, close storage.
func (a *App) Close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
		a.scheduler = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close cache tiers")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.AnalysisService, a.Config.Scheduler, a.Logger)
	}()
}

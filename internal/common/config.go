// Package common provides shared utilities for Stance
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Stance
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Provider    ProviderConfig   `toml:"provider"`
	LLM         LLMConfig        `toml:"llm"`
	Resilience  ResilienceConfig `toml:"resilience"`
	Cache       CacheConfig      `toml:"cache"`
	Benchmarks  BenchmarksConfig `toml:"benchmarks"`
	Registry    RegistryConfig   `toml:"registry"`
	RateLimit   RateLimitConfig  `toml:"rate_limit"`
	Auth        AuthConfig       `toml:"auth"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port" validate:"min=1,max=65535"`
	RequestTimeout string `toml:"request_timeout"` // top-level deadline for one analysis request
}

// GetRequestTimeout parses and returns the request deadline
func (c *ServerConfig) GetRequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeout, 25*time.Second)
}

// ProviderConfig selects and configures the raw data provider.
type ProviderConfig struct {
	Type        string `toml:"type" validate:"oneof=http file"`
	BaseURL     string `toml:"base_url" validate:"required_if=Type http"`
	APIKey      string `toml:"api_key"`
	FixturesDir string `toml:"fixtures_dir" validate:"required_if=Type file"`
	RateLimit   int    `toml:"rate_limit" validate:"min=1"`
	Timeout     string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// LLMConfig holds the model backends and the perspective routing.
type LLMConfig struct {
	JoinTimeout  string             `toml:"join_timeout"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Claude       ClaudeConfig       `toml:"claude"`
	OpenAI       OpenAIConfig       `toml:"openai"`
	Perspectives PerspectivesConfig `toml:"perspectives"`
}

// GetJoinTimeout parses and returns the bounded wait for the perspective fan-out
func (c *LLMConfig) GetJoinTimeout() time.Duration {
	return parseDuration(c.JoinTimeout, 45*time.Second)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ClaudeConfig holds Anthropic API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens" validate:"min=0"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible endpoint
// (OpenAI, Groq, DeepSeek).
type OpenAIConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens" validate:"min=0"`
}

// PerspectivesConfig maps each perspective to a backend name.
type PerspectivesConfig struct {
	Analyst    string `toml:"analyst" validate:"omitempty,oneof=gemini claude openai"`
	Contrarian string `toml:"contrarian" validate:"omitempty,oneof=gemini claude openai"`
	Educator   string `toml:"educator" validate:"omitempty,oneof=gemini claude openai"`
	Verdict    string `toml:"verdict" validate:"omitempty,oneof=gemini claude openai"`
}

// ResilienceConfig holds per-dependency breaker and retry policies.
type ResilienceConfig struct {
	Provider PolicyConfig `toml:"provider"`
	LLM      PolicyConfig `toml:"llm"`
}

// PolicyConfig configures one resilience policy.
type PolicyConfig struct {
	FailureThreshold int    `toml:"failure_threshold" validate:"min=1"`
	Cooldown         string `toml:"cooldown"`
	Timeout          string `toml:"timeout"`
	MaxRetries       int    `toml:"max_retries" validate:"min=0,max=10"`
	InitialBackoff   string `toml:"initial_backoff"`
	MaxBackoff       string `toml:"max_backoff"`
}

// GetCooldown returns how long an open breaker stays open
func (c *PolicyConfig) GetCooldown() time.Duration {
	return parseDuration(c.Cooldown, 30*time.Second)
}

// GetTimeout returns the per-attempt timeout
func (c *PolicyConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 20*time.Second)
}

// GetInitialBackoff returns the first retry delay
func (c *PolicyConfig) GetInitialBackoff() time.Duration {
	return parseDuration(c.InitialBackoff, 500*time.Millisecond)
}

// GetMaxBackoff returns the retry delay ceiling
func (c *PolicyConfig) GetMaxBackoff() time.Duration {
	return parseDuration(c.MaxBackoff, 5*time.Second)
}

// CacheConfig holds the three cache tiers and the TTL per cached stage.
type CacheConfig struct {
	AnalysisTTL string            `toml:"analysis_ttl"`
	InsightsTTL string            `toml:"insights_ttl"`
	SearchTTL   string            `toml:"search_ttl"`
	Memory      MemoryCacheConfig `toml:"memory"`
	Shared      SharedCacheConfig `toml:"shared"`
	Disk        DiskCacheConfig   `toml:"disk"`
}

// GetAnalysisTTL returns the TTL for numeric reports
func (c *CacheConfig) GetAnalysisTTL() time.Duration {
	return parseDuration(c.AnalysisTTL, 6*time.Hour)
}

// GetInsightsTTL returns the TTL for AI insights
func (c *CacheConfig) GetInsightsTTL() time.Duration {
	return parseDuration(c.InsightsTTL, 24*time.Hour)
}

// GetSearchTTL returns the TTL for search results
func (c *CacheConfig) GetSearchTTL() time.Duration {
	return parseDuration(c.SearchTTL, time.Hour)
}

// MemoryCacheConfig configures the in-process tier.
type MemoryCacheConfig struct {
	MaxEntries int    `toml:"max_entries" validate:"min=1"`
	TTL        string `toml:"ttl"`
}

// GetTTL returns the maximum TTL held in memory
func (c *MemoryCacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 5*time.Minute)
}

// SharedCacheConfig configures the SurrealDB network tier.
type SharedCacheConfig struct {
	Enabled   bool   `toml:"enabled"`
	Address   string `toml:"address" validate:"required_if=Enabled true"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	TTL       string `toml:"ttl"`
	Timeout   string `toml:"timeout"`
}

// GetTTL returns the maximum TTL held in the shared tier
func (c *SharedCacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, time.Hour)
}

// GetTimeout returns the bound on a single shared-tier operation
func (c *SharedCacheConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 750*time.Millisecond)
}

// DiskCacheConfig configures the BadgerHold durable tier.
type DiskCacheConfig struct {
	Path string `toml:"path" validate:"required"`
	TTL  string `toml:"ttl"`
}

// GetTTL returns the maximum TTL held on disk
func (c *DiskCacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 7*24*time.Hour)
}

// BenchmarksConfig points at an optional sector table override.
type BenchmarksConfig struct {
	File   string `toml:"file"`
	Adjust bool   `toml:"adjust"` // nudge pillar scores by the sector comparison
}

// RegistryConfig points at the company registry CSV.
type RegistryConfig struct {
	File string `toml:"file"`
}

// RateLimitConfig holds the per-client API limit.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute" validate:"min=1"`
	Burst             int `toml:"burst" validate:"min=1"`
}

// AuthConfig holds the admin token secret.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret" validate:"required"`
	TokenExpiry string `toml:"token_expiry"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	return parseDuration(c.TokenExpiry, time.Hour)
}

// SchedulerConfig holds the maintenance cron schedules (with seconds field).
type SchedulerConfig struct {
	CleanupSchedule string   `toml:"cleanup_schedule"`
	WarmSchedule    string   `toml:"warm_schedule"`
	WarmSymbols     []string `toml:"warm_symbols"`
	WarmInsights    bool     `toml:"warm_insights"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: "25s",
		},
		Provider: ProviderConfig{
			Type:        "file",
			FixturesDir: "data/fixtures",
			RateLimit:   2,
			Timeout:     "30s",
		},
		LLM: LLMConfig{
			JoinTimeout: "45s",
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Claude: ClaudeConfig{
				Model:     "claude-3-5-haiku-latest",
				MaxTokens: 1024,
			},
			OpenAI: OpenAIConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o-mini",
				MaxTokens: 1024,
			},
			Perspectives: PerspectivesConfig{
				Analyst:    "openai",
				Contrarian: "claude",
				Educator:   "gemini",
				Verdict:    "gemini",
			},
		},
		Resilience: ResilienceConfig{
			Provider: PolicyConfig{
				FailureThreshold: 5,
				Cooldown:         "60s",
				Timeout:          "20s",
				MaxRetries:       2,
				InitialBackoff:   "500ms",
				MaxBackoff:       "4s",
			},
			LLM: PolicyConfig{
				FailureThreshold: 5,
				Cooldown:         "30s",
				Timeout:          "30s",
				MaxRetries:       1,
				InitialBackoff:   "1s",
				MaxBackoff:       "8s",
			},
		},
		Cache: CacheConfig{
			AnalysisTTL: "6h",
			InsightsTTL: "24h",
			SearchTTL:   "1h",
			Memory: MemoryCacheConfig{
				MaxEntries: 300,
				TTL:        "5m",
			},
			Shared: SharedCacheConfig{
				Enabled:   false,
				Address:   "ws://localhost:8000/rpc",
				Namespace: "stance",
				Database:  "cache",
				Username:  "root",
				Password:  "root",
				TTL:       "1h",
				Timeout:   "750ms",
			},
			Disk: DiskCacheConfig{
				Path: "data/cache",
				TTL:  "168h",
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "1h",
		},
		Scheduler: SchedulerConfig{
			CleanupSchedule: "0 */30 * * * *",
			WarmSchedule:    "0 0 6 * * *",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/stance.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

var configValidator = validator.New()

// ValidateConfig checks structural constraints on a loaded config.
func ValidateConfig(config *Config) error {
	if err := configValidator.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	durations := map[string]string{
		"server.request_timeout":       config.Server.RequestTimeout,
		"provider.timeout":             config.Provider.Timeout,
		"llm.join_timeout":             config.LLM.JoinTimeout,
		"resilience.provider.cooldown": config.Resilience.Provider.Cooldown,
		"resilience.llm.cooldown":      config.Resilience.LLM.Cooldown,
		"cache.analysis_ttl":           config.Cache.AnalysisTTL,
		"cache.insights_ttl":           config.Cache.InsightsTTL,
		"cache.memory.ttl":             config.Cache.Memory.TTL,
		"cache.shared.ttl":             config.Cache.Shared.TTL,
		"cache.disk.ttl":               config.Cache.Disk.TTL,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STANCE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STANCE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STANCE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STANCE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("STANCE_PROVIDER_URL"); url != "" {
		config.Provider.Type = "http"
		config.Provider.BaseURL = url
	}
	if key := os.Getenv("STANCE_PROVIDER_API_KEY"); key != "" {
		config.Provider.APIKey = key
	}

	if path := os.Getenv("STANCE_DATA_PATH"); path != "" {
		config.Cache.Disk.Path = filepath.Join(path, "cache")
		config.Provider.FixturesDir = filepath.Join(path, "fixtures")
	}

	if addr := os.Getenv("STANCE_SURREAL_ADDRESS"); addr != "" {
		config.Cache.Shared.Enabled = true
		config.Cache.Shared.Address = addr
	}

	if v := os.Getenv("STANCE_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := os.Getenv("STANCE_WARM_SYMBOLS"); v != "" {
		parts := strings.Split(v, ",")
		symbols := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				symbols = append(symbols, strings.ToUpper(p))
			}
		}
		config.Scheduler.WarmSymbols = symbols
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or the config fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"GEMINI_API_KEY", "STANCE_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"claude_api_key": {"ANTHROPIC_API_KEY", "STANCE_CLAUDE_API_KEY"},
		"openai_api_key": {"OPENAI_API_KEY", "STANCE_OPENAI_API_KEY", "GROQ_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/demandcast/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Ingestion   IngestionConfig `toml:"ingestion"`
	Products    ProductsConfig  `toml:"products"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	LLM         LLMConfig       `toml:"llm"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Alerts      AlertsConfig    `toml:"alerts"`
	Report      ReportConfig    `toml:"report"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// PipelineConfig controls the forecast pipeline orchestrator
type PipelineConfig struct {
	NumBatches       int     `toml:"num_batches" validate:"gt=0"`    // Parallel batch worker count (default: 5)
	Deadline         string  `toml:"deadline"`                       // Overall run deadline as duration string (default: "10m")
	RetrievalTopN    int     `toml:"retrieval_top_n" validate:"gt=0"` // Documents retrieved per product (default: 5)
	ForecastHorizon  int     `toml:"forecast_horizon_days"`          // Forecast horizon in days (default: 30)
	CapacityUnits    int     `toml:"capacity_units"`                 // Aggregate production capacity per horizon, 0 disables capacity alerts
	DiscardOnTimeout bool    `toml:"discard_on_timeout"`             // Discard partial batch results when the deadline fires (default: true)
	BaselineFactor   float64 `toml:"baseline_factor"`                // Reserved tuning factor for the baseline model (default: 1.0)
}

// IngestionConfig controls external document sources
type IngestionConfig struct {
	RequestTimeout time.Duration      `toml:"request_timeout"` // HTTP request timeout (default: 30s)
	UserAgent      string             `toml:"user_agent"`      // HTTP user agent
	MaxBodySize    int                `toml:"max_body_size"`   // Maximum response body size in bytes
	Feeds          []FeedSourceConfig `toml:"feeds"`           // RSS/news feed sources
	Pages          []PageSourceConfig `toml:"pages"`           // HTML page sources
	Reports        []PDFSourceConfig  `toml:"reports"`         // PDF market report sources
	Mailbox        MailboxConfig      `toml:"mailbox"`         // IMAP newsletter source
}

// FeedSourceConfig describes one RSS/Atom news feed
type FeedSourceConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// PageSourceConfig describes one scraped HTML page
type PageSourceConfig struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Selector string `toml:"selector"` // CSS selector for the article body, empty = whole page
}

// PDFSourceConfig describes one downloadable PDF market report
type PDFSourceConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// MailboxConfig describes the IMAP newsletter mailbox
type MailboxConfig struct {
	Enabled  bool   `toml:"enabled"`
	Address  string `toml:"address"` // host:port, TLS assumed
	Username string `toml:"username"`
	Password string `toml:"password"`
	Folder   string `toml:"folder"`    // Mailbox folder (default: "INBOX")
	MaxAge   string `toml:"max_age"`   // Only fetch messages newer than this (default: "168h")
	MaxMails int    `toml:"max_mails"` // Cap per ingestion run (default: 50)
}

// ProductsConfig contains configuration for internal product data
type ProductsConfig struct {
	SeedDir string `toml:"seed_dir"` // Directory containing product seed files (TOML)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model name (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model name (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "4s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig selects the market-insight provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" or "gemini" (default: "claude")
	MaxRetries      int         `toml:"max_retries"`      // Retries after the first attempt (default: 1)
	RetryBackoff    string      `toml:"retry_backoff"`    // Backoff before the retry (default: "2s")
}

// SchedulerConfig controls the periodic pipeline trigger
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron expression (default: "0 */2 * * *" - every 2 hours)
}

// AlertsConfig controls alert thresholds and retention
type AlertsConfig struct {
	ChangeThresholdPercent   float64 `toml:"change_threshold_percent"`   // Warning threshold (default: 10)
	CriticalThresholdPercent float64 `toml:"critical_threshold_percent"` // Critical threshold (default: 25)
	RetentionDays            int     `toml:"retention_days"`             // Alerts older than this are swept after each run, 0 disables (default: 90)
}

// ReportConfig controls the PDF run report
type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // Output directory (default: "./reports")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in demandcast.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/demandcast.db",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Pipeline: PipelineConfig{
			NumBatches:       5,
			Deadline:         "10m",
			RetrievalTopN:    5,
			ForecastHorizon:  30,
			CapacityUnits:    0,
			DiscardOnTimeout: true,
			BaselineFactor:   1.0,
		},
		Ingestion: IngestionConfig{
			RequestTimeout: 30 * time.Second,
			UserAgent:      "demandcast/1.0",
			MaxBodySize:    10 * 1024 * 1024,
			Mailbox: MailboxConfig{
				Folder:   "INBOX",
				MaxAge:   "168h",
				MaxMails: 50,
			},
		},
		Products: ProductsConfig{
			SeedDir: "./products",
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   2048,
			Timeout:     "30s",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "30s",
			RateLimit:   "4s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
			MaxRetries:      1,
			RetryBackoff:    "2s",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 */2 * * *",
		},
		Alerts: AlertsConfig{
			ChangeThresholdPercent:   10,
			CriticalThresholdPercent: 25,
			RetentionDays:            90,
		},
		Report: ReportConfig{
			Enabled: false,
			Dir:     "./reports",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env -> CLI flags.
// Later files override earlier files.
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate performs structural validation of the configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.ParseDuration(c.Pipeline.Deadline); err != nil {
		return fmt.Errorf("invalid pipeline deadline %q: %w", c.Pipeline.Deadline, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DEMANDCAST_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("DEMANDCAST_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DEMANDCAST_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("DEMANDCAST_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("DEMANDCAST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("DEMANDCAST_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Pipeline configuration
	if numBatches := os.Getenv("DEMANDCAST_PIPELINE_BATCHES"); numBatches != "" {
		if n, err := strconv.Atoi(numBatches); err == nil && n > 0 {
			config.Pipeline.NumBatches = n
		}
	}
	if deadline := os.Getenv("DEMANDCAST_PIPELINE_DEADLINE"); deadline != "" {
		if _, err := time.ParseDuration(deadline); err == nil {
			config.Pipeline.Deadline = deadline
		}
	}
	if topN := os.Getenv("DEMANDCAST_RETRIEVAL_TOP_N"); topN != "" {
		if n, err := strconv.Atoi(topN); err == nil && n > 0 {
			config.Pipeline.RetrievalTopN = n
		}
	}

	// Alert thresholds
	if threshold := os.Getenv("DEMANDCAST_ALERT_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil && v > 0 {
			config.Alerts.ChangeThresholdPercent = v
		}
	}

	// Scheduler configuration
	if schedule := os.Getenv("DEMANDCAST_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> KV store -> config fallback -> error.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"anthropic_api_key": {"DEMANDCAST_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"gemini_api_key":    {"DEMANDCAST_GEMINI_API_KEY", "GEMINI_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// PipelineDeadline returns the parsed overall run deadline
func (c *Config) PipelineDeadline() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.Deadline)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

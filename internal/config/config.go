package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the memory server.
// Environment variables are parsed from the REMINDLY_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Record store
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"remindly.db"`

	// Blob store
	BlobDriver  string `envconfig:"BLOB_DRIVER" default:"fs"`
	BlobRoot    string `envconfig:"BLOB_ROOT" default:"blobs"`
	BlobBucket  string `envconfig:"BLOB_BUCKET" default:""`
	BlobBaseURL string `envconfig:"BLOB_BASE_URL" default:"http://localhost:8080/blobs"`

	// Model provider defaults. Per-owner overrides live in the record store;
	// these are the deployment fallback backend, models and credentials.
	DefaultProvider   string `envconfig:"DEFAULT_PROVIDER" default:"openai"`
	DefaultChatModel  string `envconfig:"DEFAULT_CHAT_MODEL" default:"gpt-4o-mini"`
	DefaultEmbedModel string `envconfig:"DEFAULT_EMBED_MODEL" default:"text-embedding-3-small"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY" default:""`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY" default:""`
	AnthropicAPIKey   string `envconfig:"ANTHROPIC_API_KEY" default:""`
	OllamaURL         string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// EmbedDimension is the single embedding dimension this deployment
	// commits to. All finalized records and all query vectors must match it;
	// changing providers is a breaking migration, never a silent mix.
	EmbedDimension int `envconfig:"EMBED_DIMENSION" default:"1536"`

	// Retrieval defaults, overridable per call.
	SearchThreshold float64 `envconfig:"SEARCH_THRESHOLD" default:"0.5"`
	SearchTopK      int     `envconfig:"SEARCH_TOP_K" default:"5"`

	// ContextCharBudget caps the grounding context assembled for the chat
	// model, in characters.
	ContextCharBudget int `envconfig:"CONTEXT_CHAR_BUDGET" default:"6000"`

	// Housekeeping: pending reservations older than ReservationTTL are
	// deleted by the sweeper.
	ReservationTTL time.Duration `envconfig:"RESERVATION_TTL" default:"1h"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`

	// Startup / health
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
	HealthCheckIntervalSecs   int `envconfig:"HEALTH_CHECK_INTERVAL_SECONDS" default:"30"`
	StartupHealthTimeoutSecs  int `envconfig:"STARTUP_HEALTH_TIMEOUT_SECONDS" default:"60"`
	ProviderProbeTimeoutSecs  int `envconfig:"PROVIDER_PROBE_TIMEOUT_SECONDS" default:"5"`
	StoreProbeTimeoutSeconds  int `envconfig:"STORE_PROBE_TIMEOUT_SECONDS" default:"2"`
	ShutdownGracePeriodSecond int `envconfig:"SHUTDOWN_GRACE_SECONDS" default:"10"`
}

// ResolveDefaults validates driver selections and derived values.
func (c *Config) ResolveDefaults() error {
	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("REMINDLY_POSTGRES_DSN is required when DB_DRIVER=postgres")
	}

	allowedBlob := map[string]bool{"fs": true, "gcs": true}
	if !allowedBlob[c.BlobDriver] {
		return fmt.Errorf("unsupported BLOB_DRIVER: %s", c.BlobDriver)
	}
	if c.BlobDriver == "gcs" && c.BlobBucket == "" {
		return fmt.Errorf("REMINDLY_BLOB_BUCKET is required when BLOB_DRIVER=gcs")
	}

	allowedProvider := map[string]bool{"openai": true, "gemini": true, "anthropic": true, "ollama": true}
	if !allowedProvider[c.DefaultProvider] {
		return fmt.Errorf("unsupported DEFAULT_PROVIDER: %s", c.DefaultProvider)
	}

	if c.EmbedDimension <= 0 {
		return fmt.Errorf("EMBED_DIMENSION must be positive, got %d", c.EmbedDimension)
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("SEARCH_TOP_K must be positive, got %d", c.SearchTopK)
	}
	if c.SearchThreshold < -1 || c.SearchThreshold > 1 {
		return fmt.Errorf("SEARCH_THRESHOLD must be within [-1,1], got %v", c.SearchThreshold)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Variables are prefixed with REMINDLY_, e.g. REMINDLY_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("REMINDLY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		DBDriver:                  "sqlite",
		SQLitePath:                "test.db",
		BlobDriver:                "fs",
		BlobRoot:                  "blobs",
		BlobBaseURL:               "http://localhost:8080/blobs",
		DefaultProvider:           "openai",
		DefaultChatModel:          "gpt-4o-mini",
		DefaultEmbedModel:         "text-embedding-3-small",
		OpenAIAPIKey:              "test-key",
		EmbedDimension:            8,
		SearchThreshold:           0.5,
		SearchTopK:                5,
		ContextCharBudget:         6000,
		ReservationTTL:            time.Hour,
		SweepInterval:             5 * time.Minute,
		BootstrapTimeoutSeconds:   5,
		HealthCheckIntervalSecs:   30,
		StartupHealthTimeoutSecs:  5,
		ProviderProbeTimeoutSecs:  2,
		StoreProbeTimeoutSeconds:  2,
		ShutdownGracePeriodSecond: 1,
	}
}

// IsTesting returns true if the environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

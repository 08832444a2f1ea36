// Package factory builds the service's dependencies from configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/blob"
	"github.com/remindly/remindly-server/internal/config"
	"github.com/remindly/remindly-server/internal/provider"
	"github.com/remindly/remindly-server/internal/store"
	"github.com/remindly/remindly-server/internal/store/postgres"
	"github.com/remindly/remindly-server/internal/store/sqlite"
)

// NewStore opens the configured record store and bootstraps its schema.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	bootstrapCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.BootstrapTimeoutSeconds)*time.Second)
	defer cancel()

	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Bootstrap(bootstrapCtx, db); err != nil {
			return nil, fmt.Errorf("bootstrap postgres schema: %w", err)
		}
		log.Info().Msg("postgres store ready")
		return postgres.NewWithDB(db), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.Bootstrap(bootstrapCtx, db); err != nil {
			return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return sqlite.NewWithDB(db), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// NewBlobStore builds the configured blob store.
func NewBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blob.Store, error) {
	switch cfg.BlobDriver {
	case "fs":
		s, err := blob.NewFSStore(cfg.BlobRoot, cfg.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("filesystem blob store: %w", err)
		}
		log.Info().Str("root", cfg.BlobRoot).Msg("filesystem blob store ready")
		return s, nil
	case "gcs":
		s, err := blob.NewGCSStore(ctx, cfg.BlobBucket, cfg.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("gcs blob store: %w", err)
		}
		log.Info().Str("bucket", cfg.BlobBucket).Msg("gcs blob store ready")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported BLOB_DRIVER: %s", cfg.BlobDriver)
	}
}

// NewProviderRouter builds the per-owner model router. The deployment default
// credentials double as the named secrets owners can reference.
func NewProviderRouter(cfg *config.Config, st store.Store, log zerolog.Logger) *provider.Router {
	secrets := map[string]string{}
	if cfg.OpenAIAPIKey != "" {
		secrets["openai-default"] = cfg.OpenAIAPIKey
	}
	if cfg.GeminiAPIKey != "" {
		secrets["gemini-default"] = cfg.GeminiAPIKey
	}
	if cfg.AnthropicAPIKey != "" {
		secrets["anthropic-default"] = cfg.AnthropicAPIKey
	}
	return provider.NewRouter(cfg, st.OwnerConfigs(), secrets, log)
}

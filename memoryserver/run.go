// Package memoryserver wires and runs the HTTP memory service.
package memoryserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/api"
	"github.com/remindly/remindly-server/internal/blob"
	"github.com/remindly/remindly-server/internal/chat"
	"github.com/remindly/remindly-server/internal/config"
	"github.com/remindly/remindly-server/internal/extract"
	"github.com/remindly/remindly-server/internal/factory"
	"github.com/remindly/remindly-server/internal/health"
	"github.com/remindly/remindly-server/internal/ingest"
	"github.com/remindly/remindly-server/internal/logger"
	"github.com/remindly/remindly-server/internal/provider"
	"github.com/remindly/remindly-server/internal/retrieval"
	"github.com/remindly/remindly-server/internal/store"
)

// Run starts the memory server and blocks until shutdown or error.
func Run() error {
	log := logger.New("memory-server")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("blob_driver", cfg.BlobDriver).
		Str("default_provider", cfg.DefaultProvider).
		Int("embed_dimension", cfg.EmbedDimension).
		Int("http_port", cfg.HTTPPort).
		Msg("Memory server starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, blobs, router, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	svcHealth := startHealthCheckers(ctx, cfg, log, st, router)
	handler := buildRouter(cfg, st, blobs, router, svcHealth.IsHealthy, log)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, handler)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		grace := time.Duration(cfg.ShutdownGracePeriodSecond) * time.Second
		ctxShutdown, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, blob.Store, *provider.Router, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("record store unavailable")
		return nil, nil, nil, err
	}

	blobs, err := factory.NewBlobStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("blob store unavailable")
		return nil, nil, nil, err
	}

	router := factory.NewProviderRouter(cfg, st, log)
	return st, blobs, router, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(cfg *config.Config, st store.Store, blobs blob.Store, router *provider.Router, isHealthy func() bool, log zerolog.Logger) http.Handler {
	memories := st.Memories()

	pipeline := ingest.NewPipeline(memories, blobs, extract.NewPlainText(), router, log)
	engine := retrieval.NewEngine(memories, blobs, log)
	assembler := chat.NewAssembler(cfg.ContextCharBudget)
	orchestrator := chat.NewOrchestrator(router, engine, assembler, cfg.SearchThreshold, cfg.SearchTopK, log)

	return api.NewRouter(api.Deps{
		Memories: api.NewMemoryHandler(pipeline, memories, log),
		Chat:     api.NewChatHandler(orchestrator, engine, router, cfg.SearchThreshold, cfg.SearchTopK, log),
		Configs:  api.NewConfigHandler(st.OwnerConfigs(), log),
		Health:   api.NewHealthHandler(isHealthy),
		Log:      log,
	})
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, router *provider.Router) *health.ServiceHealthChecker {
	interval := time.Duration(cfg.HealthCheckIntervalSecs) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, time.Duration(cfg.StoreProbeTimeoutSeconds)*time.Second)
	go storeChecker.Start(ctx, interval)
	checkers := []health.HealthChecker{storeChecker}

	if backends, err := router.DefaultBackends(ctx); err != nil {
		log.Warn().Err(err).Msg("default model backend unavailable, embedder health probe disabled")
	} else {
		embChecker := provider.NewEmbedderHealthChecker(backends.Embedder, log, time.Duration(cfg.ProviderProbeTimeoutSecs)*time.Second)
		go embChecker.Start(ctx, interval)
		checkers = append(checkers, embChecker)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeout := time.Duration(cfg.StartupHealthTimeoutSecs) * time.Second
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

package provider

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/health"
)

// EmbedderHealthChecker monitors the deployment default embedding backend by
// calling Embed, or HealthPing when the backend supports it.
type EmbedderHealthChecker struct {
	embedder     Embedder
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

func NewEmbedderHealthChecker(e Embedder, log zerolog.Logger, probeTimeout time.Duration) *EmbedderHealthChecker {
	hc := &EmbedderHealthChecker{embedder: e, log: log, probeTimeout: probeTimeout}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

func (c *EmbedderHealthChecker) Name() string    { return "embedder" }
func (c *EmbedderHealthChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

func (c *EmbedderHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		to := c.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()
		// Prefer specialized HealthPing if available
		if p, ok := any(c.embedder).(health.HealthPinger); ok {
			if err := p.HealthPing(checkCtx); err != nil {
				c.healthy.Store(0)
				c.log.Error().Str("checker", c.Name()).Err(err).Msg("embedder health check failed")
				return
			}
			c.healthy.Store(1)
			return
		}
		// Fallback: attempt a simple embedding
		vec, err := c.embedder.Embed(checkCtx, "health-check")
		if err != nil || len(vec) == 0 {
			c.healthy.Store(0)
			c.log.Error().Str("checker", c.Name()).Err(err).Msg("embedder health check failed")
			return
		}
		c.healthy.Store(1)
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

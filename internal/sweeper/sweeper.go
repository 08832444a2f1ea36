// Package sweeper expires abandoned ingestion reservations. A pending row
// whose pipeline crashed before Release would otherwise block re-uploading
// that content forever.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/remindly/remindly-server/internal/store"
)

// Config tunes the sweep loop.
type Config struct {
	// TTL is how long a reservation may stay pending before it is collected.
	TTL time.Duration
	// Interval is the poll period.
	Interval time.Duration
}

// Sweeper periodically deletes expired pending reservations.
type Sweeper struct {
	memories store.Memories
	cfg      Config
	log      zerolog.Logger
}

func New(memories store.Memories, cfg Config, log zerolog.Logger) *Sweeper {
	return &Sweeper{memories: memories, cfg: cfg, log: log}
}

// Run blocks sweeping on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("ttl", s.cfg.TTL).Dur("interval", s.cfg.Interval).Msg("reservation sweeper starting")
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reservation sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				// Log and continue; the next tick retries.
				s.log.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// SweepOnce deletes reservations older than the TTL.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.cfg.TTL)
	n, err := s.memories.DeleteExpiredReservations(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired reservations swept")
	}
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/remindly/remindly-server/internal/config"
	"github.com/remindly/remindly-server/internal/factory"
	"github.com/remindly/remindly-server/internal/logger"
	"github.com/remindly/remindly-server/internal/sweeper"
)

func main() {
	log := logger.New("reservation-sweeper")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("record store")
	}

	s := sweeper.New(st.Memories(), sweeper.Config{
		TTL:      cfg.ReservationTTL,
		Interval: cfg.SweepInterval,
	}, log)

	if err := s.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("sweeper exit")
		os.Exit(1)
	}
}

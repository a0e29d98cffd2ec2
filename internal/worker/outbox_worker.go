package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/service"
)

// Recoverer leaves a degraded mode once the store answers again.
type Recoverer interface {
	Recover(ctx context.Context) (bool, error)
}

// OutboxWorker periodically replays pending writes against the Store Gateway.
type OutboxWorker struct {
	outbox    *service.OutboxService
	recoverer Recoverer
	interval  time.Duration
}

// NewOutboxWorker constructs an OutboxWorker. recoverer may be nil.
func NewOutboxWorker(outbox *service.OutboxService, recoverer Recoverer, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		outbox:    outbox,
		recoverer: recoverer,
		interval:  interval,
	}
}

// Start drains once immediately, then on every tick until ctx is canceled.
func (w *OutboxWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting outbox worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Outbox worker stopped")
			return
		}
	}
}

func (w *OutboxWorker) run(ctx context.Context) {
	if w.recoverer != nil {
		if recovered, err := w.recoverer.Recover(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to reload catalog")
		} else if recovered {
			log.Info().Msg("Left demo mode")
		}
	}

	start := time.Now()
	res, err := w.outbox.Drain(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to drain outbox")
		}
		return
	}
	if res.Delivered == 0 && res.Retrying == 0 && res.Failed == 0 {
		return
	}
	log.Info().
		Int("delivered", res.Delivered).
		Int("retrying", res.Retrying).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("Outbox drained")
}

package sched

import (
	"context"
	"time"

	"corporate-fund-bot/internal/usecase"

	"github.com/rs/zerolog"
)

// OutboxWorker drains due notifications from the outbox and hands them to
// the Telegram sender at a fixed interval.
type OutboxWorker struct {
	interval time.Duration
	notifUC  usecase.NotificationUseCase
	log      *zerolog.Logger
}

func NewOutboxWorker(interval time.Duration, notifUC usecase.NotificationUseCase, logger *zerolog.Logger) *OutboxWorker {
	compLog := logger.With().Str("component", "OutboxWorker").Logger()
	return &OutboxWorker{
		interval: interval,
		notifUC:  notifUC,
		log:      &compLog,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting outbox worker")
	// Drain once on startup, then on every tick
	w.dispatch(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping outbox worker")
			return ctx.Err()
		case <-ticker.C:
			w.dispatch(ctx)
		}
	}
}

func (w *OutboxWorker) dispatch(ctx context.Context) {
	sent, err := w.notifUC.DispatchDue(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("outbox dispatch failed")
		return
	}
	if sent > 0 {
		w.log.Info().Int("sent", sent).Msg("notifications delivered")
	}
}

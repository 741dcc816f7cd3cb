package sched

import (
	"context"
	"time"

	"corporate-fund-bot/internal/usecase"

	"github.com/rs/zerolog"
)

// PurgeWorker deletes notifications older than the retention window
// once a day to keep the outbox table small. Age is the only criterion;
// unsent stragglers past the window are dropped too.
type PurgeWorker struct {
	retention time.Duration
	notifUC   usecase.NotificationUseCase
	log       *zerolog.Logger
}

func NewPurgeWorker(retention time.Duration, notifUC usecase.NotificationUseCase, logger *zerolog.Logger) *PurgeWorker {
	compLog := logger.With().Str("component", "PurgeWorker").Logger()
	return &PurgeWorker{
		retention: retention,
		notifUC:   notifUC,
		log:       &compLog,
	}
}

func (w *PurgeWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting purge worker")
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping purge worker")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-w.retention)
			n, err := w.notifUC.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				w.log.Error().Err(err).Msg("purge failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int("deleted", n).Msg("old notifications purged")
			}
		}
	}
}

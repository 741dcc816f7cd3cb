package sched

import (
	"context"
	"fmt"
	"time"

	"corporate-fund-bot/internal/usecase"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ReminderScheduler runs the daily reminder jobs at a fixed hour using a
// cron schedule. All three checks run back to back so the notification
// batch for a given day is produced in one pass.
type ReminderScheduler struct {
	hour  int
	remUC usecase.ReminderUseCase
	cron  *cron.Cron
	log   *zerolog.Logger
	nowFn func() time.Time
}

func NewReminderScheduler(hour int, remUC usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderScheduler {
	schedLog := logger.With().Str("component", "ReminderScheduler").Logger()
	return &ReminderScheduler{
		hour:  hour,
		remUC: remUC,
		cron:  cron.New(),
		log:   &schedLog,
		nowFn: time.Now,
	}
}

func (s *ReminderScheduler) Run(ctx context.Context) error {
	spec := fmt.Sprintf("0 %d * * *", s.hour)
	_, err := s.cron.AddFunc(spec, func() { s.runAll(ctx) })
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}
	s.log.Info().Str("schedule", spec).Msg("Starting reminder scheduler")
	s.cron.Start()

	<-ctx.Done()
	s.log.Info().Msg("Stopping reminder scheduler")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// RunOnce triggers all reminder checks immediately. Used by the admin API
// and on demand from tests.
func (s *ReminderScheduler) RunOnce(ctx context.Context) {
	s.runAll(ctx)
}

func (s *ReminderScheduler) runAll(ctx context.Context) {
	now := s.nowFn()

	n, err := s.remUC.CheckBirthdays(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("birthday check failed")
	} else {
		s.log.Info().Int("count", n).Msg("birthday reminders enqueued")
	}

	n, err = s.remUC.CheckFundDeadlines(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("deadline check failed")
	} else {
		s.log.Info().Int("count", n).Msg("deadline reminders enqueued")
	}

	n, err = s.remUC.RemindUnpaid(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("unpaid check failed")
	} else {
		s.log.Info().Int("count", n).Msg("unpaid reminders enqueued")
	}
}

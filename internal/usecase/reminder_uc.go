package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/infra/logging"
	"corporate-fund-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

// ReminderUseCase implements the time-driven checks run by the
// scheduler. Each check is idempotent per invocation in the sense that
// a rerun is harmless: duplicate notifications are tolerated, never
// catastrophic, and no check mutates anything besides the outbox.
type ReminderUseCase interface {
	// CheckBirthdays emits one notification per current admin and
	// superadmin for every roster person whose birthday falls within the
	// lookahead window. Returns the number of notifications enqueued.
	CheckBirthdays(ctx context.Context, now time.Time) (int, error)
	// CheckFundDeadlines notifies each open fund's treasurer when the
	// deadline falls within the configured window.
	CheckFundDeadlines(ctx context.Context, now time.Time) (int, error)
	// RemindUnpaid notifies every unpaid participant of every open fund.
	// Fires unconditionally each run; there is no already-reminded guard.
	RemindUnpaid(ctx context.Context, now time.Time) (int, error)
}

type reminderUC struct {
	people            PersonUseCase
	users             UserUseCase
	funds             FundUseCase
	outbox            NotificationUseCase
	birthdayLookahead int
	deadlineWindow    time.Duration
	log               *zerolog.Logger
}

func NewReminderUseCase(
	people PersonUseCase,
	users UserUseCase,
	funds FundUseCase,
	outbox NotificationUseCase,
	birthdayLookaheadDays int,
	deadlineWindowDays int,
	logger *zerolog.Logger,
) *reminderUC {
	if birthdayLookaheadDays <= 0 {
		birthdayLookaheadDays = 10
	}
	if deadlineWindowDays <= 0 {
		deadlineWindowDays = 3
	}
	return &reminderUC{
		people:            people,
		users:             users,
		funds:             funds,
		outbox:            outbox,
		birthdayLookahead: birthdayLookaheadDays,
		deadlineWindow:    time.Duration(deadlineWindowDays) * 24 * time.Hour,
		log:               logger,
	}
}

func (r *reminderUC) CheckBirthdays(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(r.log, "ReminderUC.CheckBirthdays")()

	upcoming, err := r.people.UpcomingBirthdays(ctx, now, r.birthdayLookahead)
	if err != nil {
		return 0, err
	}
	if len(upcoming) == 0 {
		return 0, nil
	}

	recipients, err := r.adminRecipients(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, ub := range upcoming {
		title := "Upcoming birthday"
		body := fmt.Sprintf("%s has a birthday in %d day(s), on %s.",
			ub.Person.FullName(), ub.DaysUntil, ub.Person.NextBirthday(now).Format(model.DateLayout))
		if ub.DaysUntil == 0 {
			body = fmt.Sprintf("%s has a birthday today!", ub.Person.FullName())
		}
		for _, admin := range recipients {
			if _, err := r.outbox.Enqueue(ctx, admin.ID, title, body, model.NotifBirthday, time.Time{}); err != nil {
				r.log.Warn().Err(err).Str("user_id", admin.ID).Msg("birthday reminder enqueue failed")
				continue
			}
			enqueued++
		}
	}
	metrics.IncReminderRun("birthday", enqueued)
	return enqueued, nil
}

// adminRecipients collects current admins and superadmins, deduplicated
// for users holding both roles.
func (r *reminderUC) adminRecipients(ctx context.Context) ([]*model.User, error) {
	admins, err := r.users.UsersWithRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	supers, err := r.users.UsersWithRole(ctx, model.RoleSuperadmin)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(admins)+len(supers))
	var out []*model.User
	for _, u := range append(admins, supers...) {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

func (r *reminderUC) CheckFundDeadlines(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(r.log, "ReminderUC.CheckFundDeadlines")()

	funds, err := r.funds.OpenWithDeadlineWithin(ctx, now, r.deadlineWindow)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, fund := range funds {
		days := fund.DaysLeft(now)
		title := "Fund deadline approaching"
		body := fmt.Sprintf("Fund %q closes in %d day(s). Collected %d of %d.",
			fund.Title, days, fund.Accumulated, fund.Target)
		if _, err := r.outbox.Enqueue(ctx, fund.TreasurerID, title, body, model.NotifFund, time.Time{}); err != nil {
			r.log.Warn().Err(err).Str("fund_id", fund.ID).Msg("deadline reminder enqueue failed")
			continue
		}
		enqueued++
	}
	metrics.IncReminderRun("deadline", enqueued)
	return enqueued, nil
}

func (r *reminderUC) RemindUnpaid(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(r.log, "ReminderUC.RemindUnpaid")()

	funds, err := r.funds.ListOpen(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, fund := range funds {
		unpaid, err := r.funds.UnpaidParticipants(ctx, fund.ID)
		if err != nil {
			// A fund closed or deleted mid-scan is simply absent from
			// results; other funds still get processed.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			r.log.Error().Err(err).Str("fund_id", fund.ID).Msg("unpaid scan failed for fund")
			continue
		}
		title := "Fund contribution reminder"
		body := fmt.Sprintf("Please contribute to the fund %q before %s.",
			fund.Title, fund.Deadline.Format(model.DateLayout))
		for _, u := range unpaid {
			if _, err := r.outbox.Enqueue(ctx, u.ID, title, body, model.NotifFund, time.Time{}); err != nil {
				r.log.Warn().Err(err).Str("user_id", u.ID).Str("fund_id", fund.ID).Msg("unpaid reminder enqueue failed")
				continue
			}
			enqueued++
		}
	}
	metrics.IncReminderRun("unpaid", enqueued)
	return enqueued, nil
}

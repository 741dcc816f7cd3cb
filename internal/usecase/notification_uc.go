package usecase

import (
	"context"
	"sync"
	"time"

	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/adapter"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/infra/logging"
	"corporate-fund-bot/internal/infra/metrics"
	"corporate-fund-bot/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase manages the durable outbox and its dispatch.
type NotificationUseCase interface {
	// Enqueue records a notification. A zero scheduledFor means
	// immediately due.
	Enqueue(ctx context.Context, userID, title, body string, category model.NotificationCategory, scheduledFor time.Time) (*model.Notification, error)
	PendingDue(ctx context.Context, now time.Time) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id string) error
	// PurgeOlderThan removes notifications created before the cutoff and
	// returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	UnreadFor(ctx context.Context, userID string) ([]*model.Notification, error)
	// DispatchDue sends all due notifications through the bot and marks
	// them sent. A delivery failure for one recipient is logged and
	// skipped; it never aborts the batch. Returns the sent count.
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

type notificationUC struct {
	outbox repository.NotificationRepository
	users  repository.UserRepository
	bot    adapter.TelegramBotAdapter
	pool   *worker.Pool
	log    *zerolog.Logger
}

// NewNotificationUseCase builds the outbox usecase. The pool is optional:
// with a started pool DispatchDue fans deliveries out across its workers,
// without one it sends sequentially.
func NewNotificationUseCase(outbox repository.NotificationRepository, users repository.UserRepository, bot adapter.TelegramBotAdapter, pool *worker.Pool, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{outbox: outbox, users: users, bot: bot, pool: pool, log: logger}
}

func (n *notificationUC) Enqueue(ctx context.Context, userID, title, body string, category model.NotificationCategory, scheduledFor time.Time) (*model.Notification, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.Enqueue")()

	notif, err := model.NewNotification("", userID, title, body, category, scheduledFor)
	if err != nil {
		return nil, err
	}
	if err := n.outbox.Save(ctx, repository.NoTX, notif); err != nil {
		return nil, err
	}
	metrics.IncNotificationsEnqueued(string(category))
	return notif, nil
}

func (n *notificationUC) PendingDue(ctx context.Context, now time.Time) ([]*model.Notification, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.PendingDue")()
	return n.outbox.ListDue(ctx, repository.NoTX, now)
}

func (n *notificationUC) MarkSent(ctx context.Context, id string) error {
	defer logging.TraceDuration(n.log, "NotificationUC.MarkSent")()
	return n.outbox.MarkSent(ctx, repository.NoTX, id)
}

func (n *notificationUC) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.PurgeOlderThan")()

	removed, err := n.outbox.DeleteOlderThan(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		n.log.Info().Int("count", removed).Time("cutoff", cutoff).Msg("purged old notifications")
	}
	return removed, nil
}

func (n *notificationUC) UnreadFor(ctx context.Context, userID string) ([]*model.Notification, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.UnreadFor")()
	return n.outbox.ListUnsentByUser(ctx, repository.NoTX, userID)
}

func (n *notificationUC) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.DispatchDue")()

	listed, err := n.outbox.ListDue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	// The query is the coarse filter; Due is the contract. A row the
	// store returns early or already marked is skipped here.
	due := listed[:0]
	for _, notif := range listed {
		if notif.Due(now) {
			due = append(due, notif)
		}
	}

	if n.pool == nil {
		sent := 0
		for _, notif := range due {
			if n.deliver(ctx, notif) {
				sent++
			}
		}
		return sent, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for _, notif := range due {
		notif := notif
		wg.Add(1)
		err := n.pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			if n.deliver(ctx, notif) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
			return nil
		})
		if err != nil {
			// Queue saturated; deliver inline rather than drop.
			wg.Done()
			if n.deliver(ctx, notif) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}
	}
	wg.Wait()
	return sent, nil
}

// deliver sends one outbox entry and marks it sent. Failures are logged
// and leave the entry unsent for the next dispatch run.
func (n *notificationUC) deliver(ctx context.Context, notif *model.Notification) bool {
	user, err := n.users.FindByID(ctx, repository.NoTX, notif.UserID)
	if err != nil {
		n.log.Warn().Err(err).Str("notification_id", notif.ID).Msg("recipient lookup failed, skipping")
		metrics.IncNotificationsFailed()
		return false
	}
	text := notif.Title
	if notif.Body != "" {
		text += "\n" + notif.Body
	}
	if err := n.bot.SendMessage(ctx, user.TelegramID, text); err != nil {
		n.log.Warn().Err(err).Int64("tg_id", user.TelegramID).Str("notification_id", notif.ID).Msg("delivery failed, skipping recipient")
		metrics.IncNotificationsFailed()
		return false
	}
	if err := n.outbox.MarkSent(ctx, repository.NoTX, notif.ID); err != nil {
		n.log.Error().Err(err).Str("notification_id", notif.ID).Msg("mark sent failed")
		return false
	}
	metrics.IncNotificationsSent(string(notif.Category))
	return true
}

package repository

import (
	"context"
	"time"

	"corporate-fund-bot/internal/domain/model"
)

// NotificationRepository is the durable outbox.
type NotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Notification) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Notification, error)
	// ListDue returns unsent notifications with scheduled_for <= now.
	ListDue(ctx context.Context, tx Tx, now time.Time) ([]*model.Notification, error)
	ListUnsentByUser(ctx context.Context, tx Tx, userID string) ([]*model.Notification, error)
	// MarkSent is idempotent; marking an already-sent entry succeeds.
	MarkSent(ctx context.Context, tx Tx, id string) error
	// DeleteOlderThan removes entries created before the cutoff
	// regardless of sent state and returns how many rows were removed.
	DeleteOlderThan(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
}

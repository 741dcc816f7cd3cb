package repository

import (
	"context"

	"corporate-fund-bot/internal/domain/model"
)

// BroadcastRepository stores broadcast records. Dispatch state lives on
// the notifications a broadcast expands into, not on the record itself.
type BroadcastRepository interface {
	Save(ctx context.Context, tx Tx, b *model.Broadcast) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Broadcast, error)
	ListBySender(ctx context.Context, tx Tx, senderID string) ([]*model.Broadcast, error)
}

// AuditRepository appends user action records.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, e *model.AuditEntry) error
}

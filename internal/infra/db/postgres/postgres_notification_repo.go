package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
)

var _ repository.NotificationRepository = (*PostgresNotificationRepo)(nil)

type PostgresNotificationRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationRepo(pool *pgxpool.Pool) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{pool: pool}
}

func (r *PostgresNotificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	const q = `
INSERT INTO notifications (id, user_id, title, body, category, sent, created_at, scheduled_for)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET sent=$6;
`
	_, err := execSQL(ctx, r.pool, tx, q, n.ID, n.UserID, n.Title, n.Body, string(n.Category), n.Sent, n.CreatedAt, n.ScheduledFor)
	return err
}

const notificationColumns = `id, user_id, title, body, category, sent, created_at, scheduled_for`

func (r *PostgresNotificationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Notification, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	var n model.Notification
	var category string
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &category, &n.Sent, &n.CreatedAt, &n.ScheduledFor); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	n.Category = model.NotificationCategory(category)
	return &n, nil
}

func (r *PostgresNotificationRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Notification, error) {
	return r.list(ctx, tx, `SELECT `+notificationColumns+` FROM notifications WHERE NOT sent AND scheduled_for <= $1 ORDER BY scheduled_for;`, now)
}

func (r *PostgresNotificationRepo) ListUnsentByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Notification, error) {
	return r.list(ctx, tx, `SELECT `+notificationColumns+` FROM notifications WHERE NOT sent AND user_id=$1 ORDER BY created_at;`, userID)
}

func (r *PostgresNotificationRepo) MarkSent(ctx context.Context, tx repository.Tx, id string) error {
	// Marking an already-sent entry is a no-op success.
	_, err := execSQL(ctx, r.pool, tx, `UPDATE notifications SET sent = TRUE WHERE id=$1;`, id)
	return err
}

func (r *PostgresNotificationRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM notifications WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresNotificationRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Notification, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Notification
	for rows.Next() {
		var n model.Notification
		var category string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &category, &n.Sent, &n.CreatedAt, &n.ScheduledFor); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		n.Category = model.NotificationCategory(category)
		out = append(out, &n)
	}
	return out, rows.Err()
}

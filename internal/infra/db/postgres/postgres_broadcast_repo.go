package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
)

var _ repository.BroadcastRepository = (*PostgresBroadcastRepo)(nil)

type PostgresBroadcastRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBroadcastRepo(pool *pgxpool.Pool) *PostgresBroadcastRepo {
	return &PostgresBroadcastRepo{pool: pool}
}

func (r *PostgresBroadcastRepo) Save(ctx context.Context, tx repository.Tx, b *model.Broadcast) error {
	const q = `
INSERT INTO broadcasts (id, sender_id, title, body, audience, target_department, fund_id, scheduled_for, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9);
`
	_, err := execSQL(ctx, r.pool, tx, q, b.ID, b.SenderID, b.Title, b.Body, string(b.Audience), b.TargetDepartment, b.FundID, b.ScheduledFor, b.CreatedAt)
	return err
}

const broadcastColumns = `id, sender_id, title, body, audience, target_department, COALESCE(fund_id::text,''), scheduled_for, created_at`

func (r *PostgresBroadcastRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Broadcast, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+broadcastColumns+` FROM broadcasts WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	var b model.Broadcast
	var audience string
	if err := row.Scan(&b.ID, &b.SenderID, &b.Title, &b.Body, &audience, &b.TargetDepartment, &b.FundID, &b.ScheduledFor, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	b.Audience = model.BroadcastAudience(audience)
	return &b, nil
}

func (r *PostgresBroadcastRepo) ListBySender(ctx context.Context, tx repository.Tx, senderID string) ([]*model.Broadcast, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+broadcastColumns+` FROM broadcasts WHERE sender_id=$1 ORDER BY created_at;`, senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Broadcast
	for rows.Next() {
		var b model.Broadcast
		var audience string
		if err := rows.Scan(&b.ID, &b.SenderID, &b.Title, &b.Body, &audience, &b.TargetDepartment, &b.FundID, &b.ScheduledFor, &b.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		b.Audience = model.BroadcastAudience(audience)
		out = append(out, &b)
	}
	return out, rows.Err()
}

var _ repository.AuditRepository = (*PostgresAuditRepo)(nil)

// PostgresAuditRepo appends user action records to the audit trail.
type PostgresAuditRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAuditRepo(pool *pgxpool.Pool) *PostgresAuditRepo {
	return &PostgresAuditRepo{pool: pool}
}

func (r *PostgresAuditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEntry) error {
	const q = `INSERT INTO audit_log (id, user_id, action, created_at) VALUES ($1,NULLIF($2,''),$3,$4);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Action, e.CreatedAt)
	return err
}

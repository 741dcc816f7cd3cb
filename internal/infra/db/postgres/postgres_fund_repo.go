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

var _ repository.FundRepository = (*PostgresFundRepo)(nil)

type PostgresFundRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresFundRepo(pool *pgxpool.Pool) *PostgresFundRepo {
	return &PostgresFundRepo{pool: pool}
}

func (r *PostgresFundRepo) Save(ctx context.Context, tx repository.Tx, f *model.Fund) error {
	const q = `
INSERT INTO funds (id, kind, title, description, person_id, event_name, treasurer_id, deadline, target, accumulated, closed, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  title=$3, description=$4, deadline=$8, target=$9;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		f.ID, string(f.Kind), f.Title, f.Description, f.PersonID, f.EventName,
		f.TreasurerID, f.Deadline, f.Target, f.Accumulated, f.Closed, f.CreatedAt)
	return err
}

const fundColumns = `id, kind, title, description, COALESCE(person_id::text,''), event_name, treasurer_id, deadline, target, accumulated, closed, created_at`

func scanFund(row pgx.Row) (*model.Fund, error) {
	var f model.Fund
	var kind string
	if err := row.Scan(&f.ID, &kind, &f.Title, &f.Description, &f.PersonID, &f.EventName,
		&f.TreasurerID, &f.Deadline, &f.Target, &f.Accumulated, &f.Closed, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	f.Kind = model.FundKind(kind)
	return &f, nil
}

func (r *PostgresFundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Fund, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+fundColumns+` FROM funds WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanFund(row)
}

func (r *PostgresFundRepo) ListOpen(ctx context.Context, tx repository.Tx) ([]*model.Fund, error) {
	return r.list(ctx, tx, `SELECT `+fundColumns+` FROM funds WHERE NOT closed ORDER BY deadline;`)
}

func (r *PostgresFundRepo) ListByTreasurer(ctx context.Context, tx repository.Tx, treasurerID string) ([]*model.Fund, error) {
	return r.list(ctx, tx, `SELECT `+fundColumns+` FROM funds WHERE treasurer_id=$1 ORDER BY created_at;`, treasurerID)
}

func (r *PostgresFundRepo) ListOpenWithDeadlineWithin(ctx context.Context, tx repository.Tx, now time.Time, window time.Duration) ([]*model.Fund, error) {
	const q = `
SELECT ` + fundColumns + `
  FROM funds
 WHERE NOT closed AND deadline > $1 AND deadline <= $2
 ORDER BY deadline;
`
	return r.list(ctx, tx, q, now, now.Add(window))
}

// AddDonation inserts the donation row and bumps the fund's running
// total in one transaction. The increment is a single UPDATE so two
// concurrent donations on the same fund serialize at the row lock and
// neither update is lost.
func (r *PostgresFundRepo) AddDonation(ctx context.Context, tx repository.Tx, d *model.Donation) error {
	run := func(ctx context.Context, tx repository.Tx) error {
		row, err := pickRow(ctx, r.pool, tx, `SELECT closed FROM funds WHERE id=$1 FOR UPDATE;`, d.FundID)
		if err != nil {
			return err
		}
		var closed bool
		if err := row.Scan(&closed); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if closed {
			return domain.ErrFundClosed
		}
		if _, err := execSQL(ctx, r.pool, tx,
			`INSERT INTO donations (id, fund_id, donor_id, amount, created_at) VALUES ($1,$2,$3,$4,$5);`,
			d.ID, d.FundID, d.DonorID, d.Amount, d.CreatedAt); err != nil {
			return err
		}
		_, err = execSQL(ctx, r.pool, tx,
			`UPDATE funds SET accumulated = accumulated + $2 WHERE id=$1;`, d.FundID, d.Amount)
		return err
	}

	// When the caller already runs inside a transaction, join it;
	// otherwise open our own so the insert and increment stay atomic.
	if tx != nil {
		return run(ctx, tx)
	}
	ptx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = ptx.Rollback(ctx) }()
	if err := run(ctx, ptx); err != nil {
		return err
	}
	return ptx.Commit(ctx)
}

func (r *PostgresFundRepo) Close(ctx context.Context, tx repository.Tx, fundID string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE funds SET closed = TRUE WHERE id=$1;`, fundID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresFundRepo) ListDonations(ctx context.Context, tx repository.Tx, fundID string) ([]*model.Donation, error) {
	return r.listDonations(ctx, tx, `SELECT id, fund_id, donor_id, amount, created_at FROM donations WHERE fund_id=$1 ORDER BY created_at;`, fundID)
}

func (r *PostgresFundRepo) ListDonationsByDonor(ctx context.Context, tx repository.Tx, donorID string) ([]*model.Donation, error) {
	return r.listDonations(ctx, tx, `SELECT id, fund_id, donor_id, amount, created_at FROM donations WHERE donor_id=$1 ORDER BY created_at;`, donorID)
}

func (r *PostgresFundRepo) DistinctDonorIDs(ctx context.Context, tx repository.Tx, fundID string) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT DISTINCT donor_id FROM donations WHERE fund_id=$1;`, fundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PostgresFundRepo) CountFunds(ctx context.Context, tx repository.Tx) (int, int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FILTER (WHERE NOT closed), COUNT(*) FILTER (WHERE closed) FROM funds;`)
	if err != nil {
		return 0, 0, err
	}
	var open, closed int
	if err := row.Scan(&open, &closed); err != nil {
		return 0, 0, err
	}
	return open, closed, nil
}

func (r *PostgresFundRepo) SumDonations(ctx context.Context, tx repository.Tx, fundID string) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COALESCE(SUM(amount),0) FROM donations WHERE fund_id=$1;`, fundID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *PostgresFundRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Fund, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Fund
	for rows.Next() {
		var f model.Fund
		var kind string
		if err := rows.Scan(&f.ID, &kind, &f.Title, &f.Description, &f.PersonID, &f.EventName,
			&f.TreasurerID, &f.Deadline, &f.Target, &f.Accumulated, &f.Closed, &f.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		f.Kind = model.FundKind(kind)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *PostgresFundRepo) listDonations(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Donation, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Donation
	for rows.Next() {
		var d model.Donation
		if err := rows.Scan(&d.ID, &d.FundID, &d.DonorID, &d.Amount, &d.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

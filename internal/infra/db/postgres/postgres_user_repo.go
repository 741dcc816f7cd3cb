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

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Save upserts the user row and reconciles the role join table. When
// called outside a transaction the two writes still end up consistent
// because the role diff is derived from the in-memory role set, but
// registration and role changes go through the TxManager anyway.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, telegram_id, username, person_id, department, active, created_at, last_active_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  username=$3, person_id=NULLIF($4,''), department=$5, active=$6, last_active_at=$8;
`
	if _, err := execSQL(ctx, r.pool, tx, q, u.ID, u.TelegramID, u.Username, u.PersonID, u.Department, u.Active, u.CreatedAt, u.LastActiveAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}

	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM user_roles WHERE user_id=$1;`, u.ID); err != nil {
		return err
	}
	for _, role := range u.Roles {
		if _, err := execSQL(ctx, r.pool, tx, `INSERT INTO user_roles (user_id, role) VALUES ($1,$2) ON CONFLICT DO NOTHING;`, u.ID, string(role)); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `u.id, u.telegram_id, u.username, COALESCE(u.person_id::text,''), u.department, u.active, u.created_at, u.last_active_at`

func (r *PostgresUserRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users u WHERE `+where+`;`, arg)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.PersonID, &u.Department, &u.Active, &u.CreatedAt, &u.LastActiveAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadRoles(ctx, tx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) loadRoles(ctx context.Context, tx repository.Tx, u *model.User) error {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT role FROM user_roles WHERE user_id=$1 ORDER BY role;`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	u.Roles = u.Roles[:0]
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return domain.ErrReadDatabaseRow
		}
		u.Roles = append(u.Roles, model.Role(role))
	}
	return rows.Err()
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `u.id=$1`, id)
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return r.findOne(ctx, tx, `u.telegram_id=$1`, tgID)
}

func (r *PostgresUserRepo) FindByPersonID(ctx context.Context, tx repository.Tx, personID string) (*model.User, error) {
	return r.findOne(ctx, tx, `u.person_id=$1`, personID)
}

func (r *PostgresUserRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	return r.list(ctx, tx, `SELECT `+userColumns+` FROM users u WHERE u.active ORDER BY u.created_at;`)
}

func (r *PostgresUserRepo) ListActiveByDepartment(ctx context.Context, tx repository.Tx, department string) ([]*model.User, error) {
	return r.list(ctx, tx, `SELECT `+userColumns+` FROM users u WHERE u.active AND u.department=$1 ORDER BY u.created_at;`, department)
}

func (r *PostgresUserRepo) ListByRole(ctx context.Context, tx repository.Tx, role model.Role) ([]*model.User, error) {
	const q = `
SELECT ` + userColumns + `
  FROM users u
  JOIN user_roles ur ON ur.user_id = u.id
 WHERE u.active AND ur.role = $1
 ORDER BY u.created_at;
`
	return r.list(ctx, tx, q, string(role))
}

func (r *PostgresUserRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.PersonID, &u.Department, &u.Active, &u.CreatedAt, &u.LastActiveAt); err != nil {
			rows.Close()
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range out {
		if err := r.loadRoles(ctx, tx, u); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

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

var _ repository.PersonRepository = (*PostgresPersonRepo)(nil)

type PostgresPersonRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPersonRepo(pool *pgxpool.Pool) *PostgresPersonRepo {
	return &PostgresPersonRepo{pool: pool}
}

func (r *PostgresPersonRepo) Save(ctx context.Context, tx repository.Tx, p *model.Person) error {
	const q = `
INSERT INTO people (id, personnel_number, first_name, patronymic, birth_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  first_name=$3, patronymic=$4, birth_date=$5;
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.PersonnelNumber, p.FirstName, p.Patronymic, p.BirthDate, p.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

const personColumns = `id, personnel_number, first_name, patronymic, birth_date, created_at`

func scanPerson(row pgx.Row) (*model.Person, error) {
	var p model.Person
	if err := row.Scan(&p.ID, &p.PersonnelNumber, &p.FirstName, &p.Patronymic, &p.BirthDate, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPersonRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Person, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+personColumns+` FROM people WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanPerson(row)
}

func (r *PostgresPersonRepo) FindByPersonnelNumber(ctx context.Context, tx repository.Tx, personnelNumber string) (*model.Person, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+personColumns+` FROM people WHERE personnel_number=$1;`, personnelNumber)
	if err != nil {
		return nil, err
	}
	return scanPerson(row)
}

func (r *PostgresPersonRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Person, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+personColumns+` FROM people ORDER BY personnel_number;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPersons(rows)
}

func (r *PostgresPersonRepo) BirthdaysOn(ctx context.Context, tx repository.Tx, monthDay time.Time) ([]*model.Person, error) {
	const q = `
SELECT ` + personColumns + `
  FROM people
 WHERE EXTRACT(MONTH FROM birth_date) = $1
   AND EXTRACT(DAY FROM birth_date) = $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, int(monthDay.Month()), monthDay.Day())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPersons(rows)
}

func (r *PostgresPersonRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM people WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectPersons(rows pgx.Rows) ([]*model.Person, error) {
	var out []*model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.PersonnelNumber, &p.FirstName, &p.Patronymic, &p.BirthDate, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

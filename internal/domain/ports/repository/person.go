package repository

import (
	"context"
	"time"

	"corporate-fund-bot/internal/domain/model"
)

// PersonRepository stores the employee roster.
type PersonRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Person) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Person, error)
	FindByPersonnelNumber(ctx context.Context, tx Tx, personnelNumber string) (*model.Person, error)
	List(ctx context.Context, tx Tx) ([]*model.Person, error)
	// BirthdaysOn returns persons whose birth month and day match the
	// given date, ignoring year.
	BirthdaysOn(ctx context.Context, tx Tx, monthDay time.Time) ([]*model.Person, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

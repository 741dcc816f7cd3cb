package usecase

import (
	"context"
	"errors"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PersonUseCase = (*personUC)(nil)

// PersonUseCase manages the employee roster (the identity directory).
type PersonUseCase interface {
	Add(ctx context.Context, personnelNumber, firstName, patronymic, birthDate string) (*model.Person, error)
	Remove(ctx context.Context, personnelNumber string) error
	Find(ctx context.Context, personnelNumber string) (*model.Person, error)
	List(ctx context.Context) ([]*model.Person, error)
	BirthdaysOn(ctx context.Context, monthDay time.Time) ([]*model.Person, error)
	// UpcomingBirthdays returns persons whose next birthday occurrence
	// falls within lookaheadDays of now (inclusive on both ends),
	// paired with the day count until it.
	UpcomingBirthdays(ctx context.Context, now time.Time, lookaheadDays int) ([]UpcomingBirthday, error)
}

// UpcomingBirthday pairs a roster entry with the days remaining until
// the next occurrence of their birthday.
type UpcomingBirthday struct {
	Person    *model.Person
	DaysUntil int
}

type personUC struct {
	people repository.PersonRepository
	users  repository.UserRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewPersonUseCase(people repository.PersonRepository, users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *personUC {
	return &personUC{people: people, users: users, tm: tm, log: logger}
}

func (p *personUC) Add(ctx context.Context, personnelNumber, firstName, patronymic, birthDate string) (*model.Person, error) {
	defer logging.TraceDuration(p.log, "PersonUC.Add")()

	born, err := model.ParseDate(birthDate)
	if err != nil {
		return nil, err
	}
	if existing, err := p.people.FindByPersonnelNumber(ctx, repository.NoTX, personnelNumber); err == nil && existing != nil {
		return nil, domain.ErrDuplicatePersonnelNumber
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	person, err := model.NewPerson("", personnelNumber, firstName, patronymic, born)
	if err != nil {
		return nil, err
	}
	// The unique index on personnel_number is the backstop when two
	// admins race past the application-level check.
	if err := p.people.Save(ctx, repository.NoTX, person); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrDuplicatePersonnelNumber
		}
		return nil, err
	}
	return person, nil
}

// Remove deletes a roster entry. Deletion is refused while a registered
// user still links to the person; the admin must sever the link first.
func (p *personUC) Remove(ctx context.Context, personnelNumber string) error {
	defer logging.TraceDuration(p.log, "PersonUC.Remove")()

	return p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		person, err := p.people.FindByPersonnelNumber(ctx, tx, personnelNumber)
		if err != nil {
			return err
		}
		linked, err := p.users.FindByPersonID(ctx, tx, person.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if linked != nil {
			return domain.ErrPersonLinked
		}
		return p.people.Delete(ctx, tx, person.ID)
	})
}

func (p *personUC) Find(ctx context.Context, personnelNumber string) (*model.Person, error) {
	defer logging.TraceDuration(p.log, "PersonUC.Find")()
	return p.people.FindByPersonnelNumber(ctx, repository.NoTX, personnelNumber)
}

func (p *personUC) List(ctx context.Context) ([]*model.Person, error) {
	defer logging.TraceDuration(p.log, "PersonUC.List")()
	return p.people.List(ctx, repository.NoTX)
}

func (p *personUC) BirthdaysOn(ctx context.Context, monthDay time.Time) ([]*model.Person, error) {
	defer logging.TraceDuration(p.log, "PersonUC.BirthdaysOn")()
	return p.people.BirthdaysOn(ctx, repository.NoTX, monthDay)
}

func (p *personUC) UpcomingBirthdays(ctx context.Context, now time.Time, lookaheadDays int) ([]UpcomingBirthday, error) {
	defer logging.TraceDuration(p.log, "PersonUC.UpcomingBirthdays")()

	people, err := p.people.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	var out []UpcomingBirthday
	for _, person := range people {
		days := person.DaysUntilBirthday(now)
		if days >= 0 && days <= lookaheadDays {
			out = append(out, UpcomingBirthday{Person: person, DaysUntil: days})
		}
	}
	return out, nil
}

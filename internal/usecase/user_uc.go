package usecase

import (
	"context"
	"errors"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase covers registration and the role registry.
type UserUseCase interface {
	// Register links a Telegram chat identity to a roster person by
	// personnel number and assigns the default role.
	Register(ctx context.Context, tgID int64, username, personnelNumber string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GrantRole(ctx context.Context, userID string, role model.Role) error
	RevokeRole(ctx context.Context, userID string, role model.Role) error
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)
	RolesOf(ctx context.Context, userID string) ([]model.Role, error)
	UsersWithRole(ctx context.Context, role model.Role) ([]*model.User, error)
	Update(ctx context.Context, userID string, upd model.UserUpdate) (*model.User, error)
	Deactivate(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users  repository.UserRepository
	people repository.PersonRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, people repository.PersonRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, people: people, tm: tm, log: logger}
}

func (u *userUC) Register(ctx context.Context, tgID int64, username, personnelNumber string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Register")()

	var user *model.User
	// The check-then-insert must be atomic with respect to a concurrent
	// registration of the same personnel number; the unique constraints
	// on telegram_id and person_id are the storage-level backstop.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if existing, err := u.users.FindByTelegramID(ctx, tx, tgID); err == nil && existing != nil {
			return domain.ErrAlreadyRegistered
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		person, err := u.people.FindByPersonnelNumber(ctx, tx, personnelNumber)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUnknownPerson
			}
			return err
		}

		if linked, err := u.users.FindByPersonID(ctx, tx, person.ID); err == nil && linked != nil {
			return domain.ErrAlreadyRegistered
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		nu, err := model.NewUser("", tgID, username, person.ID)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrAlreadyRegistered
			}
			return err
		}
		user = nu
		return nil
	})
	return user, err
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByID")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) GrantRole(ctx context.Context, userID string, role model.Role) error {
	defer logging.TraceDuration(u.log, "UserUC.GrantRole")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.HasRole(role) {
			return nil // idempotent
		}
		user.Grant(role)
		return u.users.Save(ctx, tx, user)
	})
}

func (u *userUC) RevokeRole(ctx context.Context, userID string, role model.Role) error {
	defer logging.TraceDuration(u.log, "UserUC.RevokeRole")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !user.HasRole(role) {
			return nil // idempotent
		}
		user.Revoke(role)
		return u.users.Save(ctx, tx, user)
	})
}

func (u *userUC) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.HasRole")()
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return false, err
	}
	return user.HasRole(role), nil
}

func (u *userUC) RolesOf(ctx context.Context, userID string) ([]model.Role, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

func (u *userUC) UsersWithRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.UsersWithRole")()
	return u.users.ListByRole(ctx, repository.NoTX, role)
}

func (u *userUC) Update(ctx context.Context, userID string, upd model.UserUpdate) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Update")()

	var user *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		found, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		found.Apply(upd)
		if err := u.users.Save(ctx, tx, found); err != nil {
			return err
		}
		user = found
		return nil
	})
	return user, err
}

func (u *userUC) Deactivate(ctx context.Context, userID string) error {
	defer logging.TraceDuration(u.log, "UserUC.Deactivate")()
	inactive := false
	_, err := u.Update(ctx, userID, model.UserUpdate{Active: &inactive})
	return err
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}

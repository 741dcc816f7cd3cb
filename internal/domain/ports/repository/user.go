package repository

import (
	"context"

	"corporate-fund-bot/internal/domain/model"
)

// UserRepository stores registered bot users and their role sets.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	FindByPersonID(ctx context.Context, tx Tx, personID string) (*model.User, error)
	// ListActive returns all active users.
	ListActive(ctx context.Context, tx Tx) ([]*model.User, error)
	// ListActiveByDepartment returns active users of one department.
	ListActiveByDepartment(ctx context.Context, tx Tx, department string) ([]*model.User, error)
	// ListByRole returns users currently holding the role.
	ListByRole(ctx context.Context, tx Tx, role model.Role) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}

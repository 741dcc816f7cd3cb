package model

import (
	"time"

	"corporate-fund-bot/internal/domain"

	"github.com/google/uuid"
)

// Role is a closed enumeration of user roles. There is no implicit
// hierarchy: an admin does not gain treasurer capabilities on funds it
// does not manage; each fund's treasurer check is against the fund's
// own treasurer field.
type Role string

const (
	RoleUser       Role = "user"
	RoleTreasurer  Role = "treasurer"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleTreasurer, RoleAdmin, RoleSuperadmin:
		return Role(s), nil
	}
	return "", domain.ErrInvalidArgument
}

// User is a registered bot user: a Telegram chat identity linked to a
// roster Person and holding a set of roles. Users are never
// hard-deleted, only deactivated.
type User struct {
	ID           string
	TelegramID   int64
	Username     string
	PersonID     string // empty when the roster link was severed
	Department   string
	Roles        []Role
	Active       bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}

func NewUser(id string, tgID int64, username, personID string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           id,
		TelegramID:   tgID,
		Username:     username,
		PersonID:     personID,
		Roles:        []Role{RoleUser},
		Active:       true,
		CreatedAt:    now,
		LastActiveAt: now,
	}, nil
}

func (u *User) HasRole(r Role) bool {
	for _, held := range u.Roles {
		if held == r {
			return true
		}
	}
	return false
}

// Grant adds the role; granting an already-held role is a no-op.
func (u *User) Grant(r Role) {
	if !u.HasRole(r) {
		u.Roles = append(u.Roles, r)
	}
}

// Revoke removes the role; revoking an absent role is a no-op.
func (u *User) Revoke(r Role) {
	out := u.Roles[:0]
	for _, held := range u.Roles {
		if held != r {
			out = append(out, held)
		}
	}
	u.Roles = out
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }

// UserUpdate enumerates the fields an admin may change on an existing
// user. Nil pointers leave the field untouched.
type UserUpdate struct {
	Username   *string
	Department *string
	Active     *bool
}

func (u *User) Apply(upd UserUpdate) {
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Department != nil {
		u.Department = *upd.Department
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
}

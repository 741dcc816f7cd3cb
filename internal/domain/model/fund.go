package model

import (
	"strings"
	"time"

	"corporate-fund-bot/internal/domain"

	"github.com/google/uuid"
)

// FundKind distinguishes birthday collections from free-form event
// collections.
type FundKind string

const (
	FundBirthday FundKind = "birthday"
	FundEvent    FundKind = "event"
)

func ParseFundKind(s string) (FundKind, error) {
	switch FundKind(s) {
	case FundBirthday, FundEvent:
		return FundKind(s), nil
	}
	return "", domain.ErrInvalidArgument
}

// Fund is a time-boxed money collection. Amounts are minor currency
// units. Accumulated is a running total maintained strictly by donation
// inserts inside the same transaction; it is never written elsewhere.
//
// A fund's lifecycle is one-directional: open -> closed. Passing the
// deadline does not close a fund; a fund may legitimately be topped off
// after its nominal deadline, so closure stays an explicit action.
type Fund struct {
	ID          string
	Kind        FundKind
	Title       string
	Description string
	PersonID    string // birthday target, empty for event funds
	EventName   string // event name, empty for birthday funds
	TreasurerID string
	Deadline    time.Time
	Target      int64 // 0 means no target set
	Accumulated int64
	Closed      bool
	CreatedAt   time.Time
}

func NewFund(id string, kind FundKind, title, treasurerID string, deadline time.Time, target int64) (*Fund, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(title) == "" || treasurerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if target < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if !deadline.After(time.Now()) {
		return nil, domain.ErrInvalidDeadline
	}
	return &Fund{
		ID:          id,
		Kind:        kind,
		Title:       strings.TrimSpace(title),
		TreasurerID: treasurerID,
		Deadline:    deadline,
		Target:      target,
		Accumulated: 0,
		Closed:      false,
		CreatedAt:   time.Now(),
	}, nil
}

// DaysLeft counts whole days until the deadline, negative once the
// deadline has passed.
func (f *Fund) DaysLeft(now time.Time) int {
	return int(f.Deadline.Sub(now).Hours() / 24)
}

func (f *Fund) IsZero() bool { return f == nil || f.ID == "" }

// Donation is a single self-reported contribution. Immutable once
// recorded; there is no edit or retract operation.
type Donation struct {
	ID        string
	FundID    string
	DonorID   string
	Amount    int64
	CreatedAt time.Time
}

func NewDonation(id, fundID, donorID string, amount int64) (*Donation, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if fundID == "" || donorID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrNonPositiveAmount
	}
	return &Donation{
		ID:        id,
		FundID:    fundID,
		DonorID:   donorID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}, nil
}

// FundStatus is the aggregate view returned to treasurers and admins.
// Remaining may go negative when the fund is overfunded.
type FundStatus struct {
	FundID      string
	Title       string
	Kind        FundKind
	Target      int64
	Accumulated int64
	Remaining   int64
	DonorCount  int
	DaysLeft    int
	Closed      bool
}

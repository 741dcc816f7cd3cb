package repository

import (
	"context"
	"time"

	"corporate-fund-bot/internal/domain/model"
)

// FundRepository stores funds and their donations. AddDonation is the
// only write path for a fund's accumulated total: the donation insert
// and the running-total increment are applied in one transaction so a
// crash cannot leave one without the other.
type FundRepository interface {
	Save(ctx context.Context, tx Tx, f *model.Fund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Fund, error)
	ListOpen(ctx context.Context, tx Tx) ([]*model.Fund, error)
	ListByTreasurer(ctx context.Context, tx Tx, treasurerID string) ([]*model.Fund, error)
	// ListOpenWithDeadlineWithin returns open funds whose deadline is
	// strictly after `now` and at or before `now + window`.
	ListOpenWithDeadlineWithin(ctx context.Context, tx Tx, now time.Time, window time.Duration) ([]*model.Fund, error)
	// AddDonation inserts the donation and increments the fund's
	// accumulated amount atomically. Returns domain.ErrNotFound when the
	// fund is absent and domain.ErrFundClosed when it is closed.
	AddDonation(ctx context.Context, tx Tx, d *model.Donation) error
	// Close marks the fund closed. Closing an already-closed fund is a
	// no-op success.
	Close(ctx context.Context, tx Tx, fundID string) error
	ListDonations(ctx context.Context, tx Tx, fundID string) ([]*model.Donation, error)
	ListDonationsByDonor(ctx context.Context, tx Tx, donorID string) ([]*model.Donation, error)
	// DistinctDonorIDs returns the set of users that donated to the fund
	// at least once.
	DistinctDonorIDs(ctx context.Context, tx Tx, fundID string) ([]string, error)
	CountFunds(ctx context.Context, tx Tx) (open int, closed int, err error)
	SumDonations(ctx context.Context, tx Tx, fundID string) (int64, error)
}

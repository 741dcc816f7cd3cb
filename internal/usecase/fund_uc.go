package usecase

import (
	"context"
	"errors"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/infra/logging"
	"corporate-fund-bot/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ FundUseCase = (*fundUC)(nil)

// CreateFundParams carries everything needed to open a fund. For
// birthday funds PersonnelNumber names the target; for event funds
// EventName describes the occasion.
type CreateFundParams struct {
	Kind            model.FundKind
	Title           string
	Description     string
	PersonnelNumber string
	EventName       string
	TreasurerID     string
	Deadline        time.Time
	Target          int64
}

// FundUseCase is the fund ledger: creation, donations, closure, status.
type FundUseCase interface {
	Create(ctx context.Context, p CreateFundParams) (*model.Fund, error)
	AddDonation(ctx context.Context, fundID, donorID string, amount int64) (*model.Donation, error)
	Close(ctx context.Context, fundID string) error
	Get(ctx context.Context, fundID string) (*model.Fund, error)
	Status(ctx context.Context, fundID string) (*model.FundStatus, error)
	// UnpaidParticipants returns all active users who have not donated
	// to the fund. For birthday funds the target person's own linked
	// user is excluded.
	UnpaidParticipants(ctx context.Context, fundID string) ([]*model.User, error)
	ListOpen(ctx context.Context) ([]*model.Fund, error)
	// OpenWithDeadlineWithin returns open funds whose deadline is
	// strictly after now and at or before now+window.
	OpenWithDeadlineWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Fund, error)
	FundsByTreasurer(ctx context.Context, treasurerID string) ([]*model.Fund, error)
	Donations(ctx context.Context, fundID string) ([]*model.Donation, error)
	DonationsByUser(ctx context.Context, donorID string) ([]*model.Donation, error)
}

type fundUC struct {
	funds  repository.FundRepository
	users  repository.UserRepository
	people repository.PersonRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewFundUseCase(funds repository.FundRepository, users repository.UserRepository, people repository.PersonRepository, tm repository.TransactionManager, logger *zerolog.Logger) *fundUC {
	return &fundUC{funds: funds, users: users, people: people, tm: tm, log: logger}
}

func (f *fundUC) Create(ctx context.Context, p CreateFundParams) (*model.Fund, error) {
	defer logging.TraceDuration(f.log, "FundUC.Create")()

	if !p.Deadline.After(time.Now()) {
		return nil, domain.ErrInvalidDeadline
	}

	var fund *model.Fund
	err := f.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		nf, err := model.NewFund("", p.Kind, p.Title, p.TreasurerID, p.Deadline, p.Target)
		if err != nil {
			return err
		}
		nf.Description = p.Description

		switch p.Kind {
		case model.FundBirthday:
			person, err := f.people.FindByPersonnelNumber(ctx, tx, p.PersonnelNumber)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrUnknownPerson
				}
				return err
			}
			// Self-collection check: the treasurer must not be the linked
			// user of the birthday person.
			linked, err := f.users.FindByPersonID(ctx, tx, person.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if linked != nil && linked.ID == p.TreasurerID {
				return domain.ErrSelfCollection
			}
			nf.PersonID = person.ID
		case model.FundEvent:
			if p.EventName == "" {
				return domain.ErrInvalidArgument
			}
			nf.EventName = p.EventName
		default:
			return domain.ErrInvalidArgument
		}

		if err := f.funds.Save(ctx, tx, nf); err != nil {
			return err
		}
		fund = nf
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncFundsCreated(string(p.Kind))
	return fund, nil
}

func (f *fundUC) AddDonation(ctx context.Context, fundID, donorID string, amount int64) (*model.Donation, error) {
	defer logging.TraceDuration(f.log, "FundUC.AddDonation")()

	donation, err := model.NewDonation("", fundID, donorID, amount)
	if err != nil {
		return nil, err
	}
	// The repository applies the donation insert and the accumulated
	// increment as one transaction; two concurrent donations on the same
	// fund both land because the increment is a single UPDATE statement.
	if err := f.funds.AddDonation(ctx, repository.NoTX, donation); err != nil {
		return nil, err
	}
	metrics.ObserveDonation(amount)
	return donation, nil
}

func (f *fundUC) Close(ctx context.Context, fundID string) error {
	defer logging.TraceDuration(f.log, "FundUC.Close")()
	return f.funds.Close(ctx, repository.NoTX, fundID)
}

func (f *fundUC) Get(ctx context.Context, fundID string) (*model.Fund, error) {
	defer logging.TraceDuration(f.log, "FundUC.Get")()
	return f.funds.FindByID(ctx, repository.NoTX, fundID)
}

func (f *fundUC) Status(ctx context.Context, fundID string) (*model.FundStatus, error) {
	defer logging.TraceDuration(f.log, "FundUC.Status")()

	fund, err := f.funds.FindByID(ctx, repository.NoTX, fundID)
	if err != nil {
		return nil, err
	}
	donors, err := f.funds.DistinctDonorIDs(ctx, repository.NoTX, fundID)
	if err != nil {
		return nil, err
	}
	// The stored running total is authoritative; a mismatch with the
	// donations sum means a manual edit or a bug and is worth a trace.
	if sum, serr := f.funds.SumDonations(ctx, repository.NoTX, fundID); serr == nil && sum != fund.Accumulated {
		f.log.Warn().Str("fund_id", fund.ID).
			Int64("accumulated", fund.Accumulated).
			Int64("donations_sum", sum).
			Msg("fund running total drifted from donations")
	}
	return &model.FundStatus{
		FundID:      fund.ID,
		Title:       fund.Title,
		Kind:        fund.Kind,
		Target:      fund.Target,
		Accumulated: fund.Accumulated,
		Remaining:   fund.Target - fund.Accumulated,
		DonorCount:  len(donors),
		DaysLeft:    fund.DaysLeft(time.Now()),
		Closed:      fund.Closed,
	}, nil
}

func (f *fundUC) UnpaidParticipants(ctx context.Context, fundID string) ([]*model.User, error) {
	defer logging.TraceDuration(f.log, "FundUC.UnpaidParticipants")()

	fund, err := f.funds.FindByID(ctx, repository.NoTX, fundID)
	if err != nil {
		return nil, err
	}
	active, err := f.users.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	donorIDs, err := f.funds.DistinctDonorIDs(ctx, repository.NoTX, fundID)
	if err != nil {
		return nil, err
	}
	exclude := make(map[string]struct{}, len(donorIDs)+1)
	for _, id := range donorIDs {
		exclude[id] = struct{}{}
	}
	// A person is never a debtor on their own collection.
	if fund.Kind == model.FundBirthday && fund.PersonID != "" {
		linked, err := f.users.FindByPersonID(ctx, repository.NoTX, fund.PersonID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if linked != nil {
			exclude[linked.ID] = struct{}{}
		}
	}

	var unpaid []*model.User
	for _, u := range active {
		if _, skip := exclude[u.ID]; !skip {
			unpaid = append(unpaid, u)
		}
	}
	return unpaid, nil
}

func (f *fundUC) ListOpen(ctx context.Context) ([]*model.Fund, error) {
	defer logging.TraceDuration(f.log, "FundUC.ListOpen")()
	return f.funds.ListOpen(ctx, repository.NoTX)
}

func (f *fundUC) OpenWithDeadlineWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Fund, error) {
	defer logging.TraceDuration(f.log, "FundUC.OpenWithDeadlineWithin")()
	return f.funds.ListOpenWithDeadlineWithin(ctx, repository.NoTX, now, window)
}

func (f *fundUC) FundsByTreasurer(ctx context.Context, treasurerID string) ([]*model.Fund, error) {
	defer logging.TraceDuration(f.log, "FundUC.FundsByTreasurer")()
	return f.funds.ListByTreasurer(ctx, repository.NoTX, treasurerID)
}

func (f *fundUC) Donations(ctx context.Context, fundID string) ([]*model.Donation, error) {
	defer logging.TraceDuration(f.log, "FundUC.Donations")()
	if _, err := f.funds.FindByID(ctx, repository.NoTX, fundID); err != nil {
		return nil, err
	}
	return f.funds.ListDonations(ctx, repository.NoTX, fundID)
}

func (f *fundUC) DonationsByUser(ctx context.Context, donorID string) ([]*model.Donation, error) {
	defer logging.TraceDuration(f.log, "FundUC.DonationsByUser")()
	return f.funds.ListDonationsByDonor(ctx, repository.NoTX, donorID)
}

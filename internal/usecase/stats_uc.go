package usecase

import (
	"context"

	"corporate-fund-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the aggregate counters snapshot exposed to admins.
type Stats struct {
	Users       int `json:"users"`
	OpenFunds   int `json:"open_funds"`
	ClosedFunds int `json:"closed_funds"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	users repository.UserRepository
	funds repository.FundRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, funds repository.FundRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, funds: funds, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Stats, error) {
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	open, closed, err := s.funds.CountFunds(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, OpenFunds: open, ClosedFunds: closed}, nil
}

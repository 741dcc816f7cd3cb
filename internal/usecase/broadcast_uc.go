package usecase

import (
	"context"
	"errors"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

// CreateBroadcastParams describes an admin-authored broadcast.
type CreateBroadcastParams struct {
	SenderID         string
	Title            string
	Body             string
	Audience         model.BroadcastAudience
	TargetDepartment string
	FundID           string
	ScheduledFor     time.Time
}

// BroadcastUseCase records broadcasts and expands them into per-recipient
// outbox entries. Delivery itself is the outbox dispatcher's job.
type BroadcastUseCase interface {
	// Create stores the broadcast and enqueues one notification per
	// matching active recipient. Returns the broadcast and the number of
	// recipients enqueued.
	Create(ctx context.Context, p CreateBroadcastParams) (*model.Broadcast, int, error)
	// SendFundReminder lets a fund's treasurer nudge unpaid participants
	// with a custom text. Fails with domain.ErrNotTreasurer when the
	// sender does not manage the fund.
	SendFundReminder(ctx context.Context, senderID, fundID, text string) (int, error)
}

type broadcastUC struct {
	broadcasts repository.BroadcastRepository
	users      repository.UserRepository
	funds      FundUseCase
	outbox     NotificationUseCase
	log        *zerolog.Logger
}

func NewBroadcastUseCase(
	broadcasts repository.BroadcastRepository,
	users repository.UserRepository,
	funds FundUseCase,
	outbox NotificationUseCase,
	logger *zerolog.Logger,
) *broadcastUC {
	return &broadcastUC{
		broadcasts: broadcasts,
		users:      users,
		funds:      funds,
		outbox:     outbox,
		log:        logger,
	}
}

func (uc *broadcastUC) Create(ctx context.Context, p CreateBroadcastParams) (*model.Broadcast, int, error) {
	defer logging.TraceDuration(uc.log, "BroadcastUC.Create")()

	b, err := model.NewBroadcast("", p.SenderID, p.Title, p.Body, p.Audience, p.ScheduledFor)
	if err != nil {
		return nil, 0, err
	}
	b.TargetDepartment = p.TargetDepartment
	b.FundID = p.FundID

	recipients, err := uc.resolveAudience(ctx, b)
	if err != nil {
		return nil, 0, err
	}

	if err := uc.broadcasts.Save(ctx, repository.NoTX, b); err != nil {
		return nil, 0, err
	}

	enqueued := 0
	for _, r := range recipients {
		if _, err := uc.outbox.Enqueue(ctx, r.ID, b.Title, b.Body, model.NotifBroadcast, b.ScheduledFor); err != nil {
			uc.log.Warn().Err(err).Str("user_id", r.ID).Str("broadcast_id", b.ID).Msg("enqueue failed, skipping recipient")
			continue
		}
		enqueued++
	}
	uc.log.Info().Str("broadcast_id", b.ID).Str("audience", string(b.Audience)).Int("recipients", enqueued).Msg("broadcast expanded")
	return b, enqueued, nil
}

// resolveAudience expands a distribution rule into concrete recipients.
// The sender is never included.
func (uc *broadcastUC) resolveAudience(ctx context.Context, b *model.Broadcast) ([]*model.User, error) {
	var pool []*model.User
	var err error

	switch b.Audience {
	case model.AudienceDepartment:
		if b.TargetDepartment == "" {
			return nil, domain.ErrInvalidArgument
		}
		pool, err = uc.users.ListActiveByDepartment(ctx, repository.NoTX, b.TargetDepartment)
	default:
		pool, err = uc.users.ListActive(ctx, repository.NoTX)
	}
	if err != nil {
		return nil, err
	}

	exclude := map[string]struct{}{b.SenderID: {}}
	if b.Audience == model.AudienceExcludeBirthdayPerson {
		if b.FundID == "" {
			return nil, domain.ErrInvalidArgument
		}
		fund, err := uc.funds.Get(ctx, b.FundID)
		if err != nil {
			return nil, err
		}
		if fund.Kind == model.FundBirthday && fund.PersonID != "" {
			linked, err := uc.users.FindByPersonID(ctx, repository.NoTX, fund.PersonID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			if linked != nil {
				exclude[linked.ID] = struct{}{}
			}
		}
	}

	out := pool[:0]
	for _, u := range pool {
		if _, skip := exclude[u.ID]; !skip {
			out = append(out, u)
		}
	}
	return out, nil
}

func (uc *broadcastUC) SendFundReminder(ctx context.Context, senderID, fundID, text string) (int, error) {
	defer logging.TraceDuration(uc.log, "BroadcastUC.SendFundReminder")()

	fund, err := uc.funds.Get(ctx, fundID)
	if err != nil {
		return 0, err
	}
	if fund.Closed {
		return 0, domain.ErrFundClosed
	}
	if fund.TreasurerID != senderID {
		return 0, domain.ErrNotTreasurer
	}

	unpaid, err := uc.funds.UnpaidParticipants(ctx, fundID)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, u := range unpaid {
		if u.ID == senderID {
			continue
		}
		if _, err := uc.outbox.Enqueue(ctx, u.ID, "Fund reminder: "+fund.Title, text, model.NotifFund, time.Time{}); err != nil {
			uc.log.Warn().Err(err).Str("user_id", u.ID).Msg("enqueue failed, skipping recipient")
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

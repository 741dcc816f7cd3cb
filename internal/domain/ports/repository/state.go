package repository

import (
	"context"
)

// ConversationState holds a user's progress in any multi-step flow
// (registration, fund creation, donation, broadcast composition).
type ConversationState struct {
	Step string            `json:"step"` // e.g. "register:awaiting_personnel_number"
	Data map[string]string `json:"data"` // collected answers keyed by field
}

// StateRepository is the port for managing per-chat conversational
// state. State is short-lived; implementations expire it on their own.
type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *ConversationState) error
	GetState(ctx context.Context, tgID int64) (*ConversationState, error)
	ClearState(ctx context.Context, tgID int64) error
}

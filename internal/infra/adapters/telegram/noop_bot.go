package telegram

import (
	"context"

	"corporate-fund-bot/internal/domain/ports/adapter"
)

// NoopBot discards outgoing messages. Useful for local runs without a
// bot token and for wiring tests.
type NoopBot struct{}

var _ adapter.TelegramBotAdapter = (*NoopBot)(nil)

func NewNoopBot() *NoopBot { return &NoopBot{} }

func (n *NoopBot) SendMessage(ctx context.Context, tgID int64, text string) error { return nil }

func (n *NoopBot) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	return nil
}

package model

import (
	"strings"
	"time"

	"corporate-fund-bot/internal/domain"

	"github.com/google/uuid"
)

// NotificationCategory classifies outbox entries for display and purge
// policies.
type NotificationCategory string

const (
	NotifBirthday  NotificationCategory = "birthday"
	NotifFund      NotificationCategory = "fund"
	NotifBroadcast NotificationCategory = "broadcast"
	NotifSystem    NotificationCategory = "system"
)

// Notification is a durable outbox entry addressed to one user. The
// dispatcher drains due entries and flips Sent; entries are retained
// until an explicit age-based purge.
type Notification struct {
	ID           string
	UserID       string
	Title        string
	Body         string
	Category     NotificationCategory
	Sent         bool
	CreatedAt    time.Time
	ScheduledFor time.Time
}

// NewNotification builds an outbox entry. A zero scheduledFor means
// immediately due.
func NewNotification(id, userID, title, body string, category NotificationCategory, scheduledFor time.Time) (*Notification, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if userID == "" || strings.TrimSpace(title) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	return &Notification{
		ID:           id,
		UserID:       userID,
		Title:        title,
		Body:         body,
		Category:     category,
		Sent:         false,
		CreatedAt:    now,
		ScheduledFor: scheduledFor,
	}, nil
}

// Due reports whether the entry should be dispatched at the given time.
func (n *Notification) Due(now time.Time) bool {
	return !n.Sent && !n.ScheduledFor.After(now)
}

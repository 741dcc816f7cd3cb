package model

import (
	"strings"
	"time"

	"corporate-fund-bot/internal/domain"

	"github.com/google/uuid"
)

// BroadcastAudience is the distribution rule for a broadcast.
type BroadcastAudience string

const (
	// AudienceAll targets every active registered user.
	AudienceAll BroadcastAudience = "all"
	// AudienceExcludeBirthdayPerson targets everyone except the linked
	// user of a birthday fund's target person. Requires FundID.
	AudienceExcludeBirthdayPerson BroadcastAudience = "exclude-birthday-person"
	// AudienceDepartment targets active users of one department.
	AudienceDepartment BroadcastAudience = "by-department"
)

func ParseAudience(s string) (BroadcastAudience, error) {
	switch BroadcastAudience(s) {
	case AudienceAll, AudienceExcludeBirthdayPerson, AudienceDepartment:
		return BroadcastAudience(s), nil
	}
	return "", domain.ErrInvalidArgument
}

// Broadcast is an admin-authored message that expands into one
// Notification per matching recipient. The record itself is not mutated
// after creation; its generated notifications carry the dispatch state.
type Broadcast struct {
	ID               string
	SenderID         string
	Title            string
	Body             string
	Audience         BroadcastAudience
	TargetDepartment string
	FundID           string
	ScheduledFor     time.Time
	CreatedAt        time.Time
}

func NewBroadcast(id, senderID, title, body string, audience BroadcastAudience, scheduledFor time.Time) (*Broadcast, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if senderID == "" || strings.TrimSpace(title) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	return &Broadcast{
		ID:           id,
		SenderID:     senderID,
		Title:        title,
		Body:         body,
		Audience:     audience,
		ScheduledFor: scheduledFor,
		CreatedAt:    now,
	}, nil
}

// AuditEntry records one user-visible action for the audit trail.
type AuditEntry struct {
	ID        string
	UserID    string // empty for anonymous/system actions
	Action    string
	CreatedAt time.Time
}

func NewAuditEntry(userID, action string) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now(),
	}
}

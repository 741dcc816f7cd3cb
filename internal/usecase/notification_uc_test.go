//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/usecase"
)

func TestNotificationUseCase_Enqueue(t *testing.T) {
	ctx := context.Background()
	outbox := NewMockNotificationRepo()
	users := NewMockUserRepo()
	bot := &MockTelegramBot{}
	uc := usecase.NewNotificationUseCase(outbox, users, bot, nil, newTestLogger())

	t.Run("a zero schedule means immediately due", func(t *testing.T) {
		n, err := uc.Enqueue(ctx, "user-1", "Hello", "body", model.NotifSystem, time.Time{})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if !n.Due(time.Now().Add(time.Second)) {
			t.Error("zero-scheduled notification must be due now")
		}
	})

	t.Run("a future schedule is not yet due", func(t *testing.T) {
		n, err := uc.Enqueue(ctx, "user-1", "Later", "", model.NotifSystem, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if n.Due(time.Now()) {
			t.Error("future notification must not be due yet")
		}
	})

	t.Run("rejects a missing recipient or title", func(t *testing.T) {
		if _, err := uc.Enqueue(ctx, "", "Hello", "", model.NotifSystem, time.Time{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := uc.Enqueue(ctx, "user-1", "  ", "", model.NotifSystem, time.Time{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNotificationUseCase_DispatchDue(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (usecase.NotificationUseCase, *MockNotificationRepo, *MockUserRepo, *MockTelegramBot) {
		outbox := NewMockNotificationRepo()
		users := NewMockUserRepo()
		bot := &MockTelegramBot{}
		uc := usecase.NewNotificationUseCase(outbox, users, bot, nil, newTestLogger())
		return uc, outbox, users, bot
	}

	t.Run("sends due entries and marks them sent", func(t *testing.T) {
		uc, outbox, users, bot := setup(t)
		u, _ := model.NewUser("", 555, "ivan", "")
		users.Save(ctx, nil, u)

		if _, err := uc.Enqueue(ctx, u.ID, "Ping", "pong", model.NotifSystem, time.Time{}); err != nil {
			t.Fatal(err)
		}
		sent, err := uc.DispatchDue(ctx, time.Now().Add(time.Second))
		if err != nil {
			t.Fatalf("DispatchDue failed: %v", err)
		}
		if sent != 1 {
			t.Fatalf("expected 1 sent, got %d", sent)
		}
		msgs := bot.SentTo(555)
		if len(msgs) != 1 || msgs[0].Text != "Ping\npong" {
			t.Errorf("unexpected delivery: %+v", msgs)
		}
		for _, n := range outbox.All() {
			if !n.Sent {
				t.Error("dispatched entry must be marked sent")
			}
		}
	})

	t.Run("re-checks dueness on rows the store hands back", func(t *testing.T) {
		uc, outbox, users, bot := setup(t)
		u, _ := model.NewUser("", 555, "ivan", "")
		users.Save(ctx, nil, u)

		now := time.Now()
		ready, _ := model.NewNotification("", u.ID, "Now", "", model.NotifSystem, time.Time{})
		early, _ := model.NewNotification("", u.ID, "Later", "", model.NotifSystem, now.Add(time.Hour))
		done, _ := model.NewNotification("", u.ID, "Done", "", model.NotifSystem, time.Time{})
		done.Sent = true
		for _, n := range []*model.Notification{ready, early, done} {
			if err := outbox.Save(ctx, nil, n); err != nil {
				t.Fatal(err)
			}
		}
		// A coarse store query may hand back rows that are not due.
		outbox.ListDueFunc = func(ctx context.Context, tx repository.Tx, at time.Time) ([]*model.Notification, error) {
			return []*model.Notification{ready, early, done}, nil
		}

		sent, err := uc.DispatchDue(ctx, now)
		if err != nil {
			t.Fatalf("DispatchDue failed: %v", err)
		}
		if sent != 1 {
			t.Fatalf("expected only the due entry to go out, got %d", sent)
		}
		if msgs := bot.SentTo(555); len(msgs) != 1 || msgs[0].Text != "Now" {
			t.Errorf("unexpected deliveries: %+v", msgs)
		}
	})

	t.Run("does not touch entries scheduled in the future", func(t *testing.T) {
		uc, outbox, users, _ := setup(t)
		u, _ := model.NewUser("", 555, "ivan", "")
		users.Save(ctx, nil, u)

		if _, err := uc.Enqueue(ctx, u.ID, "Later", "", model.NotifSystem, time.Now().Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
		sent, err := uc.DispatchDue(ctx, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if sent != 0 {
			t.Fatalf("expected 0 sent, got %d", sent)
		}
		for _, n := range outbox.All() {
			if n.Sent {
				t.Error("future entry must stay unsent")
			}
		}
	})

	t.Run("a delivery failure skips the recipient and keeps the entry", func(t *testing.T) {
		uc, outbox, users, bot := setup(t)
		broken, _ := model.NewUser("", 111, "down", "")
		fine, _ := model.NewUser("", 222, "up", "")
		users.Save(ctx, nil, broken)
		users.Save(ctx, nil, fine)

		bot.SendMessageFunc = func(ctx context.Context, tgID int64, text string) error {
			if tgID == 111 {
				return errors.New("blocked by user")
			}
			return nil
		}

		if _, err := uc.Enqueue(ctx, broken.ID, "A", "", model.NotifSystem, time.Time{}); err != nil {
			t.Fatal(err)
		}
		if _, err := uc.Enqueue(ctx, fine.ID, "B", "", model.NotifSystem, time.Time{}); err != nil {
			t.Fatal(err)
		}

		sent, err := uc.DispatchDue(ctx, time.Now().Add(time.Second))
		if err != nil {
			t.Fatalf("DispatchDue must not abort the batch: %v", err)
		}
		if sent != 1 {
			t.Fatalf("expected 1 sent, got %d", sent)
		}
		for _, n := range outbox.All() {
			if n.UserID == broken.ID && n.Sent {
				t.Error("failed delivery must leave the entry unsent for retry")
			}
			if n.UserID == fine.ID && !n.Sent {
				t.Error("successful delivery must be marked sent")
			}
		}
	})

	t.Run("a second run does not resend", func(t *testing.T) {
		uc, _, users, bot := setup(t)
		u, _ := model.NewUser("", 555, "ivan", "")
		users.Save(ctx, nil, u)

		if _, err := uc.Enqueue(ctx, u.ID, "Once", "", model.NotifSystem, time.Time{}); err != nil {
			t.Fatal(err)
		}
		if _, err := uc.DispatchDue(ctx, time.Now().Add(time.Second)); err != nil {
			t.Fatal(err)
		}
		sent, err := uc.DispatchDue(ctx, time.Now().Add(2*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if sent != 0 {
			t.Fatalf("expected nothing on the second run, got %d", sent)
		}
		if len(bot.SentTo(555)) != 1 {
			t.Errorf("expected exactly one delivery, got %d", len(bot.SentTo(555)))
		}
	})
}

func TestNotificationUseCase_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	outbox := NewMockNotificationRepo()
	users := NewMockUserRepo()
	uc := usecase.NewNotificationUseCase(outbox, users, &MockTelegramBot{}, nil, newTestLogger())

	old, _ := model.NewNotification("", "user-1", "Old", "", model.NotifSystem, time.Time{})
	old.CreatedAt = time.Now().AddDate(0, 0, -100)
	outbox.Save(ctx, nil, old)

	fresh, _ := model.NewNotification("", "user-1", "Fresh", "", model.NotifSystem, time.Time{})
	outbox.Save(ctx, nil, fresh)

	removed, err := uc.PurgeOlderThan(ctx, time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	rest := outbox.All()
	if len(rest) != 1 || rest[0].Title != "Fresh" {
		t.Errorf("expected only the fresh entry to survive, got %d", len(rest))
	}
}

func TestNotificationUseCase_UnreadFor(t *testing.T) {
	ctx := context.Background()
	outbox := NewMockNotificationRepo()
	users := NewMockUserRepo()
	bot := &MockTelegramBot{}
	uc := usecase.NewNotificationUseCase(outbox, users, bot, nil, newTestLogger())

	u, _ := model.NewUser("", 555, "ivan", "")
	users.Save(ctx, nil, u)

	if _, err := uc.Enqueue(ctx, u.ID, "One", "", model.NotifSystem, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Enqueue(ctx, "someone-else", "Other", "", model.NotifSystem, time.Time{}); err != nil {
		t.Fatal(err)
	}

	pending, err := uc.UnreadFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("UnreadFor failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "One" {
		t.Fatalf("expected just this user's entry, got %d", len(pending))
	}

	if _, err := uc.DispatchDue(ctx, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	pending, _ = uc.UnreadFor(ctx, u.ID)
	if len(pending) != 0 {
		t.Errorf("sent entries are no longer unread, got %d", len(pending))
	}
}

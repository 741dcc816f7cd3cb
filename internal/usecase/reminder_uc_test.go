//go:build !integration

package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/repository"
	"corporate-fund-bot/internal/usecase"
)

type reminderFixture struct {
	uc        usecase.ReminderUseCase
	userUC    usecase.UserUseCase
	fundUC    usecase.FundUseCase
	notifRepo *MockNotificationRepo
	people    *MockPersonRepo
	users     *MockUserRepo
	funds     *MockFundRepo
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	log := newTestLogger()
	people := NewMockPersonRepo()
	users := NewMockUserRepo()
	funds := NewMockFundRepo()
	notifRepo := NewMockNotificationRepo()
	tm := NewMockTxManager()

	personUC := usecase.NewPersonUseCase(people, users, tm, log)
	userUC := usecase.NewUserUseCase(users, people, tm, log)
	fundUC := usecase.NewFundUseCase(funds, users, people, tm, log)
	notifUC := usecase.NewNotificationUseCase(notifRepo, users, &MockTelegramBot{}, nil, log)
	uc := usecase.NewReminderUseCase(personUC, userUC, fundUC, notifUC, 10, 3, log)
	return &reminderFixture{
		uc:        uc,
		userUC:    userUC,
		fundUC:    fundUC,
		notifRepo: notifRepo,
		people:    people,
		users:     users,
		funds:     funds,
	}
}

func (f *reminderFixture) seedUser(t *testing.T, tgID int64, roles ...model.Role) *model.User {
	t.Helper()
	ctx := context.Background()
	u, err := model.NewUser("", tgID, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.users.Save(ctx, nil, u); err != nil {
		t.Fatal(err)
	}
	for _, r := range roles {
		if err := f.userUC.GrantRole(ctx, u.ID, r); err != nil {
			t.Fatalf("grant %s: %v", r, err)
		}
	}
	return u
}

func (f *reminderFixture) seedPersonBorn(t *testing.T, personnelNumber string, month time.Month, day int) *model.Person {
	t.Helper()
	born := time.Date(1990, month, day, 0, 0, 0, 0, time.UTC)
	p, err := model.NewPerson("", personnelNumber, "Anna", "Pavlovna", born)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.people.Save(context.Background(), nil, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReminderUseCase_CheckBirthdays(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 5, 9, 0, 0, 0, time.UTC)

	t.Run("notifies admins and superadmins only", func(t *testing.T) {
		f := newReminderFixture(t)
		f.seedPersonBorn(t, "1001", time.June, 15) // 10 days out
		admin := f.seedUser(t, 100, model.RoleAdmin)
		super := f.seedUser(t, 200, model.RoleSuperadmin)
		plain := f.seedUser(t, 300)
		treasurer := f.seedUser(t, 400, model.RoleTreasurer)

		n, err := f.uc.CheckBirthdays(ctx, now)
		if err != nil {
			t.Fatalf("CheckBirthdays failed: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 notifications, got %d", n)
		}
		got := recipientsOf(f.notifRepo.All())
		if got[admin.ID] != 1 || got[super.ID] != 1 {
			t.Errorf("admin and superadmin each get one entry: %v", got)
		}
		if got[plain.ID] != 0 || got[treasurer.ID] != 0 {
			t.Error("regular users and treasurers are not birthday recipients")
		}
		for _, notif := range f.notifRepo.All() {
			if notif.Category != model.NotifBirthday {
				t.Errorf("expected birthday category, got %s", notif.Category)
			}
			if !strings.Contains(notif.Body, "10 day(s)") {
				t.Errorf("body should name the days left, got %q", notif.Body)
			}
		}
	})

	t.Run("does not double-send to a user holding both roles", func(t *testing.T) {
		f := newReminderFixture(t)
		f.seedPersonBorn(t, "1001", time.June, 15)
		both := f.seedUser(t, 100, model.RoleAdmin, model.RoleSuperadmin)

		n, err := f.uc.CheckBirthdays(ctx, now)
		if err != nil {
			t.Fatalf("CheckBirthdays failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 notification, got %d", n)
		}
		if got := recipientsOf(f.notifRepo.All()); got[both.ID] != 1 {
			t.Errorf("expected exactly one entry for the dual-role user, got %v", got)
		}
	})

	t.Run("uses the today wording on the day itself", func(t *testing.T) {
		f := newReminderFixture(t)
		f.seedPersonBorn(t, "1001", time.June, 5)
		f.seedUser(t, 100, model.RoleAdmin)

		if _, err := f.uc.CheckBirthdays(ctx, now); err != nil {
			t.Fatal(err)
		}
		all := f.notifRepo.All()
		if len(all) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(all))
		}
		if !strings.Contains(all[0].Body, "birthday today") {
			t.Errorf("expected today wording, got %q", all[0].Body)
		}
	})

	t.Run("stays quiet outside the lookahead window", func(t *testing.T) {
		f := newReminderFixture(t)
		f.seedPersonBorn(t, "1001", time.July, 20) // 45 days out
		f.seedUser(t, 100, model.RoleAdmin)

		n, err := f.uc.CheckBirthdays(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("expected no notifications, got %d", n)
		}
	})
}

func TestReminderUseCase_CheckFundDeadlines(t *testing.T) {
	ctx := context.Background()

	createFund := func(t *testing.T, f *reminderFixture, treasurer *model.User, due time.Time) *model.Fund {
		t.Helper()
		fund, err := f.fundUC.Create(ctx, usecase.CreateFundParams{
			Kind:        model.FundEvent,
			Title:       "Team outing",
			EventName:   "outing",
			TreasurerID: treasurer.ID,
			Deadline:    due,
		})
		if err != nil {
			t.Fatal(err)
		}
		return fund
	}

	t.Run("warns the treasurer inside the window", func(t *testing.T) {
		f := newReminderFixture(t)
		treasurer := f.seedUser(t, 100, model.RoleTreasurer)
		now := time.Now()
		createFund(t, f, treasurer, now.Add(48*time.Hour))

		n, err := f.uc.CheckFundDeadlines(ctx, now)
		if err != nil {
			t.Fatalf("CheckFundDeadlines failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 notification, got %d", n)
		}
		all := f.notifRepo.All()
		if all[0].UserID != treasurer.ID {
			t.Error("the deadline warning goes to the fund's treasurer")
		}
		if all[0].Category != model.NotifFund {
			t.Errorf("expected fund category, got %s", all[0].Category)
		}
	})

	t.Run("ignores funds due further out", func(t *testing.T) {
		f := newReminderFixture(t)
		treasurer := f.seedUser(t, 100, model.RoleTreasurer)
		now := time.Now()
		createFund(t, f, treasurer, now.Add(10*24*time.Hour))

		n, err := f.uc.CheckFundDeadlines(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("expected no notifications, got %d", n)
		}
	})

	t.Run("ignores funds already past due", func(t *testing.T) {
		f := newReminderFixture(t)
		treasurer := f.seedUser(t, 100, model.RoleTreasurer)
		now := time.Now()
		fund := createFund(t, f, treasurer, now.Add(time.Hour))

		n, err := f.uc.CheckFundDeadlines(ctx, fund.Deadline.Add(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("expected no notifications, got %d", n)
		}
	})
}

func TestReminderUseCase_RemindUnpaid(t *testing.T) {
	ctx := context.Background()

	t.Run("nudges unpaid participants across open funds", func(t *testing.T) {
		f := newReminderFixture(t)
		treasurer := f.seedUser(t, 100, model.RoleTreasurer)
		slacker := f.seedUser(t, 200)
		donor := f.seedUser(t, 300)
		fund, err := f.fundUC.Create(ctx, usecase.CreateFundParams{
			Kind:        model.FundEvent,
			Title:       "Team outing",
			EventName:   "outing",
			TreasurerID: treasurer.ID,
			Deadline:    deadline(7),
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.fundUC.AddDonation(ctx, fund.ID, donor.ID, 5_000); err != nil {
			t.Fatal(err)
		}

		n, err := f.uc.RemindUnpaid(ctx, time.Now())
		if err != nil {
			t.Fatalf("RemindUnpaid failed: %v", err)
		}
		// The treasurer has not donated either, so they are nudged too.
		if n != 2 {
			t.Fatalf("expected 2 notifications, got %d", n)
		}
		got := recipientsOf(f.notifRepo.All())
		if got[slacker.ID] != 1 || got[treasurer.ID] != 1 {
			t.Errorf("slacker and treasurer each get one entry: %v", got)
		}
		if got[donor.ID] != 0 {
			t.Error("a donor must not be nudged")
		}
		for _, notif := range f.notifRepo.All() {
			if !strings.Contains(notif.Body, fund.Title) {
				t.Errorf("body should name the fund, got %q", notif.Body)
			}
		}
	})

	t.Run("skips a fund that vanished mid-scan", func(t *testing.T) {
		f := newReminderFixture(t)
		treasurer := f.seedUser(t, 100, model.RoleTreasurer)
		ghost, err := f.fundUC.Create(ctx, usecase.CreateFundParams{
			Kind:        model.FundEvent,
			Title:       "Ghost",
			EventName:   "ghost",
			TreasurerID: treasurer.ID,
			Deadline:    deadline(5),
		})
		if err != nil {
			t.Fatal(err)
		}
		alive, err := f.fundUC.Create(ctx, usecase.CreateFundParams{
			Kind:        model.FundEvent,
			Title:       "Alive",
			EventName:   "alive",
			TreasurerID: treasurer.ID,
			Deadline:    deadline(5),
		})
		if err != nil {
			t.Fatal(err)
		}
		f.funds.FindByIDFunc = func(_ context.Context, _ repository.Tx, id string) (*model.Fund, error) {
			if id == ghost.ID {
				return nil, domain.ErrNotFound
			}
			cp := *alive
			return &cp, nil
		}

		n, err := f.uc.RemindUnpaid(ctx, time.Now())
		if err != nil {
			t.Fatalf("RemindUnpaid failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 notification for the surviving fund, got %d", n)
		}
	})
}

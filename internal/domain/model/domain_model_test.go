//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"corporate-fund-bot/internal/domain"
)

// --- Person Model Tests ---

func TestNewPerson(t *testing.T) {
	birth := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)

	t.Run("should create a new person successfully", func(t *testing.T) {
		p, err := NewPerson("", "123456", "Ivan", "Petrovich", birth)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.ID == "" {
			t.Error("expected person ID to be non-empty")
		}
		if p.PersonnelNumber != "123456" {
			t.Errorf("expected personnel number '123456', got %s", p.PersonnelNumber)
		}
		if p.FullName() != "Ivan Petrovich" {
			t.Errorf("unexpected full name: %s", p.FullName())
		}
	})

	t.Run("should fail with empty personnel number", func(t *testing.T) {
		_, err := NewPerson("", "  ", "Ivan", "Petrovich", birth)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should fail with zero birth date", func(t *testing.T) {
		_, err := NewPerson("", "123456", "Ivan", "Petrovich", time.Time{})
		if !errors.Is(err, domain.ErrInvalidDate) {
			t.Errorf("expected ErrInvalidDate, got %v", err)
		}
	})
}

func TestParseDate(t *testing.T) {
	t.Run("accepts day.month.year", func(t *testing.T) {
		d, err := ParseDate("15.06.1990")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if d.Day() != 15 || d.Month() != time.June || d.Year() != 1990 {
			t.Errorf("unexpected date: %v", d)
		}
	})

	t.Run("rejects malformed and out-of-range dates", func(t *testing.T) {
		for _, s := range []string{"", "1990-06-15", "32.01.2000", "15.13.2000", "abc"} {
			if _, err := ParseDate(s); !errors.Is(err, domain.ErrInvalidDate) {
				t.Errorf("ParseDate(%q): expected ErrInvalidDate, got %v", s, err)
			}
		}
	})
}

func TestNextBirthday(t *testing.T) {
	testCases := []struct {
		name      string
		birth     time.Time
		today     time.Time
		wantDays  int
		wantMonth time.Month
	}{
		{
			name:      "upcoming this year",
			birth:     time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, time.June, 5, 9, 30, 0, 0, time.UTC),
			wantDays:  10,
			wantMonth: time.June,
		},
		{
			name:      "today counts as zero days",
			birth:     time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, time.June, 15, 23, 0, 0, 0, time.UTC),
			wantDays:  0,
			wantMonth: time.June,
		},
		{
			name:      "wraps to next year after passing",
			birth:     time.Date(1990, time.January, 10, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
			wantDays:  10,
			wantMonth: time.January,
		},
		{
			name:      "feb 29 observed on mar 1 off leap years",
			birth:     time.Date(1992, time.February, 29, 0, 0, 0, 0, time.UTC),
			today:     time.Date(2025, time.February, 25, 0, 0, 0, 0, time.UTC),
			wantDays:  4,
			wantMonth: time.March,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Person{BirthDate: tc.birth}
			next := p.NextBirthday(tc.today)
			if next.Month() != tc.wantMonth {
				t.Errorf("expected month %v, got %v", tc.wantMonth, next.Month())
			}
			if got := p.DaysUntilBirthday(tc.today); got != tc.wantDays {
				t.Errorf("expected %d days until birthday, got %d", tc.wantDays, got)
			}
		})
	}
}

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user with the default role", func(t *testing.T) {
		u, err := NewUser("", 12345, "ivan", "person-1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if u.ID == "" {
			t.Error("expected user ID to be non-empty")
		}
		if !u.Active {
			t.Error("expected new user to be active")
		}
		if !u.HasRole(RoleUser) {
			t.Error("expected new user to hold the default role")
		}
		if u.HasRole(RoleAdmin) {
			t.Error("did not expect a new user to hold admin")
		}
	})

	t.Run("should fail with invalid telegram ID", func(t *testing.T) {
		if _, err := NewUser("", 0, "ivan", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestUserRoles(t *testing.T) {
	u, _ := NewUser("", 555, "petr", "")

	u.Grant(RoleTreasurer)
	if !u.HasRole(RoleTreasurer) {
		t.Fatal("expected treasurer role after grant")
	}

	// granting an already-held role must not duplicate it
	u.Grant(RoleTreasurer)
	count := 0
	for _, r := range u.Roles {
		if r == RoleTreasurer {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one treasurer role entry, got %d", count)
	}

	u.Revoke(RoleTreasurer)
	if u.HasRole(RoleTreasurer) {
		t.Error("expected treasurer role to be revoked")
	}

	// revoking an absent role is a no-op
	u.Revoke(RoleAdmin)
	if !u.HasRole(RoleUser) {
		t.Error("revoking an absent role must not disturb held roles")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "treasurer", "admin", "superadmin"} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("ParseRole(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseRole("owner"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown role, got %v", err)
	}
}

// --- Fund Model Tests ---

func TestNewFund(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour)

	t.Run("should create an open fund with zero accumulated", func(t *testing.T) {
		f, err := NewFund("", FundBirthday, "Gift for Ivan", "treasurer-1", deadline, 100_000)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if f.Closed {
			t.Error("expected new fund to be open")
		}
		if f.Accumulated != 0 {
			t.Errorf("expected accumulated 0, got %d", f.Accumulated)
		}
	})

	t.Run("should fail with past deadline", func(t *testing.T) {
		_, err := NewFund("", FundEvent, "Party", "treasurer-1", time.Now().Add(-time.Hour), 0)
		if !errors.Is(err, domain.ErrInvalidDeadline) {
			t.Errorf("expected ErrInvalidDeadline, got %v", err)
		}
	})

	t.Run("should fail with empty title", func(t *testing.T) {
		_, err := NewFund("", FundEvent, "  ", "treasurer-1", deadline, 0)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNewDonation(t *testing.T) {
	t.Run("should reject non-positive amounts", func(t *testing.T) {
		for _, amount := range []int64{0, -100} {
			if _, err := NewDonation("", "fund-1", "user-1", amount); !errors.Is(err, domain.ErrNonPositiveAmount) {
				t.Errorf("amount %d: expected ErrNonPositiveAmount, got %v", amount, err)
			}
		}
	})

	t.Run("should create a donation", func(t *testing.T) {
		d, err := NewDonation("", "fund-1", "user-1", 5000)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if d.Amount != 5000 {
			t.Errorf("expected amount 5000, got %d", d.Amount)
		}
	})
}

// --- Notification Model Tests ---

func TestNewNotification(t *testing.T) {
	t.Run("omitted schedule means immediately due", func(t *testing.T) {
		n, err := NewNotification("", "user-1", "Reminder", "pay up", NotifFund, time.Time{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !n.Due(time.Now().Add(time.Second)) {
			t.Error("expected unscheduled notification to be due immediately")
		}
	})

	t.Run("future schedule is not due yet", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		n, _ := NewNotification("", "user-1", "Later", "", NotifBroadcast, later)
		if n.Due(time.Now()) {
			t.Error("expected scheduled notification not to be due yet")
		}
		if !n.Due(later.Add(time.Minute)) {
			t.Error("expected scheduled notification to be due after its time")
		}
	})

	t.Run("sent notifications are never due", func(t *testing.T) {
		n, _ := NewNotification("", "user-1", "Done", "", NotifSystem, time.Time{})
		n.Sent = true
		if n.Due(time.Now().Add(time.Hour)) {
			t.Error("sent notification must not be due")
		}
	})
}

func TestParseAudience(t *testing.T) {
	for _, s := range []string{"all", "exclude-birthday-person", "by-department"} {
		if _, err := ParseAudience(s); err != nil {
			t.Errorf("ParseAudience(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseAudience("everyone"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown audience, got %v", err)
	}
}

package model

import (
	"strings"
	"time"

	"corporate-fund-bot/internal/domain"

	"github.com/google/uuid"
)

// DateLayout is the textual date format used across the bot's command
// surface, e.g. "15.06.1990".
const DateLayout = "02.01.2006"

// Person is an employee roster entry. It exists independently of bot
// registration; a RegisteredUser may link to at most one Person.
type Person struct {
	ID              string
	PersonnelNumber string
	FirstName       string
	Patronymic      string
	BirthDate       time.Time
	CreatedAt       time.Time
}

func NewPerson(id, personnelNumber, firstName, patronymic string, birthDate time.Time) (*Person, error) {
	if id == "" {
		id = uuid.NewString()
	}
	personnelNumber = strings.TrimSpace(personnelNumber)
	if personnelNumber == "" {
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(firstName) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if birthDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	return &Person{
		ID:              id,
		PersonnelNumber: personnelNumber,
		FirstName:       strings.TrimSpace(firstName),
		Patronymic:      strings.TrimSpace(patronymic),
		BirthDate:       birthDate,
		CreatedAt:       time.Now(),
	}, nil
}

// ParseDate parses a day.month.year date and rejects values outside the
// calendar range (time.Parse already refuses e.g. 32.01.2000).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return t, nil
}

func (p *Person) FullName() string {
	if p.Patronymic == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.Patronymic
}

// NextBirthday returns the next occurrence of the person's birth
// month/day on-or-after the given day, wrapping to next year when this
// year's date has already passed. A Feb-29 birthday is observed on
// Mar-1 in non-leap years (time.Date normalizes the overflow).
func (p *Person) NextBirthday(today time.Time) time.Time {
	y, _, _ := today.Date()
	occ := time.Date(y, p.BirthDate.Month(), p.BirthDate.Day(), 0, 0, 0, 0, today.Location())
	day := time.Date(y, today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if occ.Before(day) {
		occ = time.Date(y+1, p.BirthDate.Month(), p.BirthDate.Day(), 0, 0, 0, 0, today.Location())
	}
	return occ
}

// DaysUntilBirthday counts whole days from today to the next birthday
// occurrence. Zero means the birthday is today.
func (p *Person) DaysUntilBirthday(today time.Time) int {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return int(p.NextBirthday(today).Sub(day).Hours() / 24)
}

func (p *Person) IsZero() bool { return p == nil || p.ID == "" }

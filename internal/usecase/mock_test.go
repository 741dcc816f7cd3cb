//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/domain/ports/adapter"
	"corporate-fund-bot/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Adapters
// =============================

// ---- Mock TelegramBotAdapter ----

type sentMessage struct {
	TgID int64
	Text string
}

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, tgID int64, text string) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, tgID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, tgID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{TgID: tgID, Text: text})
	return nil
}

func (m *MockTelegramBot) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, tgID, text)
}

func (m *MockTelegramBot) SentTo(tgID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.Sent {
		if s.TgID == tgID {
			out = append(out, s)
		}
	}
	return out
}

// =============================
// Transaction manager
// =============================

// MockTxManager runs the closure immediately with a nil handle. The
// repositories below ignore the handle entirely.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Mock PersonRepository ----

type MockPersonRepo struct {
	mu sync.Mutex
	db map[string]*model.Person // by ID

	SaveFunc                  func(ctx context.Context, tx repository.Tx, p *model.Person) error
	FindByPersonnelNumberFunc func(ctx context.Context, tx repository.Tx, personnelNumber string) (*model.Person, error)
	DeleteFunc                func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.PersonRepository = (*MockPersonRepo)(nil)

func NewMockPersonRepo() *MockPersonRepo {
	return &MockPersonRepo{db: map[string]*model.Person{}}
}

func (m *MockPersonRepo) Save(ctx context.Context, tx repository.Tx, p *model.Person) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.db {
		if existing.PersonnelNumber == p.PersonnelNumber && existing.ID != p.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	m.db[p.ID] = &cp
	return nil
}

func (m *MockPersonRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.db[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPersonRepo) FindByPersonnelNumber(ctx context.Context, tx repository.Tx, personnelNumber string) (*model.Person, error) {
	if m.FindByPersonnelNumberFunc != nil {
		return m.FindByPersonnelNumberFunc(ctx, tx, personnelNumber)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.db {
		if p.PersonnelNumber == personnelNumber {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPersonRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Person, 0, len(m.db))
	for _, p := range m.db {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonnelNumber < out[j].PersonnelNumber })
	return out, nil
}

func (m *MockPersonRepo) BirthdaysOn(ctx context.Context, tx repository.Tx, monthDay time.Time) ([]*model.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Person
	for _, p := range m.db {
		if p.BirthDate.Month() == monthDay.Month() && p.BirthDate.Day() == monthDay.Day() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPersonRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.db[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.db, id)
	return nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu sync.Mutex
	db map[string]*model.User // by ID

	SaveFunc             func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	FindByIDFunc         func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	CountUsersFunc       func(ctx context.Context, tx repository.Tx) (int, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{db: map[string]*model.User{}}
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	cp.Roles = append([]model.Role(nil), u.Roles...)
	return &cp
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.db {
		if existing.ID == u.ID {
			continue
		}
		if existing.TelegramID == u.TelegramID {
			return domain.ErrAlreadyExists
		}
		if u.PersonID != "" && existing.PersonID == u.PersonID {
			return domain.ErrAlreadyExists
		}
	}
	m.db[u.ID] = cloneUser(u)
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.db[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if m.FindByTelegramIDFunc != nil {
		return m.FindByTelegramIDFunc(ctx, tx, tgID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.db {
		if u.TelegramID == tgID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByPersonID(ctx context.Context, tx repository.Tx, personID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.db {
		if u.PersonID == personID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.db {
		if u.Active {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockUserRepo) ListActiveByDepartment(ctx context.Context, tx repository.Tx, department string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.db {
		if u.Active && u.Department == department {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockUserRepo) ListByRole(ctx context.Context, tx repository.Tx, role model.Role) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.db {
		if u.HasRole(role) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	if m.CountUsersFunc != nil {
		return m.CountUsersFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.db), nil
}

// ---- Mock FundRepository ----

type MockFundRepo struct {
	mu        sync.Mutex
	funds     map[string]*model.Fund
	donations map[string][]*model.Donation // by fund ID

	AddDonationFunc func(ctx context.Context, tx repository.Tx, d *model.Donation) error
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.Fund, error)
}

var _ repository.FundRepository = (*MockFundRepo)(nil)

func NewMockFundRepo() *MockFundRepo {
	return &MockFundRepo{
		funds:     map[string]*model.Fund{},
		donations: map[string][]*model.Donation{},
	}
}

func (m *MockFundRepo) Save(ctx context.Context, tx repository.Tx, f *model.Fund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.funds[f.ID] = &cp
	return nil
}

func (m *MockFundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Fund, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockFundRepo) ListOpen(ctx context.Context, tx repository.Tx) ([]*model.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Fund
	for _, f := range m.funds {
		if !f.Closed {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockFundRepo) ListByTreasurer(ctx context.Context, tx repository.Tx, treasurerID string) ([]*model.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Fund
	for _, f := range m.funds {
		if f.TreasurerID == treasurerID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockFundRepo) ListOpenWithDeadlineWithin(ctx context.Context, tx repository.Tx, now time.Time, window time.Duration) ([]*model.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := now.Add(window)
	var out []*model.Fund
	for _, f := range m.funds {
		if !f.Closed && f.Deadline.After(now) && !f.Deadline.After(limit) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockFundRepo) AddDonation(ctx context.Context, tx repository.Tx, d *model.Donation) error {
	if m.AddDonationFunc != nil {
		return m.AddDonationFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funds[d.FundID]
	if !ok {
		return domain.ErrNotFound
	}
	if f.Closed {
		return domain.ErrFundClosed
	}
	cp := *d
	m.donations[d.FundID] = append(m.donations[d.FundID], &cp)
	f.Accumulated += d.Amount
	return nil
}

func (m *MockFundRepo) Close(ctx context.Context, tx repository.Tx, fundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funds[fundID]
	if !ok {
		return domain.ErrNotFound
	}
	f.Closed = true
	return nil
}

func (m *MockFundRepo) ListDonations(ctx context.Context, tx repository.Tx, fundID string) ([]*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.donations[fundID]
	out := make([]*model.Donation, 0, len(src))
	for _, d := range src {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockFundRepo) ListDonationsByDonor(ctx context.Context, tx repository.Tx, donorID string) ([]*model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Donation
	for _, ds := range m.donations {
		for _, d := range ds {
			if d.DonorID == donorID {
				cp := *d
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (m *MockFundRepo) DistinctDonorIDs(ctx context.Context, tx repository.Tx, fundID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, d := range m.donations[fundID] {
		if _, ok := seen[d.DonorID]; ok {
			continue
		}
		seen[d.DonorID] = struct{}{}
		out = append(out, d.DonorID)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockFundRepo) CountFunds(ctx context.Context, tx repository.Tx) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	open, closed := 0, 0
	for _, f := range m.funds {
		if f.Closed {
			closed++
		} else {
			open++
		}
	}
	return open, closed, nil
}

func (m *MockFundRepo) SumDonations(ctx context.Context, tx repository.Tx, fundID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, d := range m.donations[fundID] {
		sum += d.Amount
	}
	return sum, nil
}

// ---- Mock NotificationRepository ----

type MockNotificationRepo struct {
	mu sync.Mutex
	db map[string]*model.Notification

	SaveFunc     func(ctx context.Context, tx repository.Tx, n *model.Notification) error
	MarkSentFunc func(ctx context.Context, tx repository.Tx, id string) error
	ListDueFunc  func(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Notification, error)
}

var _ repository.NotificationRepository = (*MockNotificationRepo)(nil)

func NewMockNotificationRepo() *MockNotificationRepo {
	return &MockNotificationRepo{db: map[string]*model.Notification{}}
}

func (m *MockNotificationRepo) Save(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.db[n.ID] = &cp
	return nil
}

func (m *MockNotificationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.db[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MockNotificationRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Notification, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, tx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Notification
	for _, n := range m.db {
		if !n.Sent && !n.ScheduledFor.After(now) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockNotificationRepo) ListUnsentByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Notification
	for _, n := range m.db {
		if !n.Sent && n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockNotificationRepo) MarkSent(ctx context.Context, tx repository.Tx, id string) error {
	if m.MarkSentFunc != nil {
		return m.MarkSentFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.db[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Sent = true
	return nil
}

func (m *MockNotificationRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, n := range m.db {
		if n.CreatedAt.Before(cutoff) {
			delete(m.db, id)
			removed++
		}
	}
	return removed, nil
}

// All returns every stored notification, for assertions.
func (m *MockNotificationRepo) All() []*model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Notification, 0, len(m.db))
	for _, n := range m.db {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- Mock BroadcastRepository ----

type MockBroadcastRepo struct {
	mu sync.Mutex
	db map[string]*model.Broadcast

	SaveFunc func(ctx context.Context, tx repository.Tx, b *model.Broadcast) error
}

var _ repository.BroadcastRepository = (*MockBroadcastRepo)(nil)

func NewMockBroadcastRepo() *MockBroadcastRepo {
	return &MockBroadcastRepo{db: map[string]*model.Broadcast{}}
}

func (m *MockBroadcastRepo) Save(ctx context.Context, tx repository.Tx, b *model.Broadcast) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.db[b.ID] = &cp
	return nil
}

func (m *MockBroadcastRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.db[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBroadcastRepo) ListBySender(ctx context.Context, tx repository.Tx, senderID string) ([]*model.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Broadcast
	for _, b := range m.db {
		if b.SenderID == senderID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tixgate/tixgate/internal/models"
)

// MemoryTicketStore is a map-backed TicketStore with the same conditional
// update semantics as the gorm one, including the unique access-key
// constraint. It backs the test suites and makes collision scenarios
// reproducible.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]models.Ticket
	keys    map[string]uuid.UUID
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets: make(map[uuid.UUID]models.Ticket),
		keys:    make(map[string]uuid.UUID),
	}
}

func (s *MemoryTicketStore) Create(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.keys[t.AccessKey]; taken {
		return ErrDuplicateAccessKey
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = *t
	s.keys[t.AccessKey] = t.ID
	return nil
}

func (s *MemoryTicketStore) ByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryTicketStore) ByAccessKey(ctx context.Context, key string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.keys[key]
	if !ok {
		return nil, ErrNotFound
	}
	t := s.tickets[id]
	return &t, nil
}

func (s *MemoryTicketStore) AccessKeyExists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.keys[key]
	return ok, nil
}

func (s *MemoryTicketStore) Save(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tickets[t.ID]
	if !ok {
		return ErrNotFound
	}
	if old.AccessKey != t.AccessKey {
		if id, taken := s.keys[t.AccessKey]; taken && id != t.ID {
			return ErrDuplicateAccessKey
		}
		delete(s.keys, old.AccessKey)
		s.keys[t.AccessKey] = t.ID
	}
	t.UpdatedAt = time.Now()
	s.tickets[t.ID] = *t
	return nil
}

func (s *MemoryTicketStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	s.tickets[id] = t
	return true, nil
}

func (s *MemoryTicketStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tickets[id]; ok {
		delete(s.keys, t.AccessKey)
		delete(s.tickets, id)
	}
	return nil
}

func (s *MemoryTicketStore) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tickets {
		if t.EventID == eventID && t.Status != models.StatusCancelled && t.Status != models.StatusExpired {
			count++
		}
	}
	return count, nil
}

func (s *MemoryTicketStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sortTicketsNewestFirst(out)
	return out, nil
}

func (s *MemoryTicketStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	sortTicketsNewestFirst(out)
	return out, nil
}

func (s *MemoryTicketStore) List(ctx context.Context, f TicketFilter) ([]models.Ticket, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Ticket
	for _, t := range s.tickets {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.EventID != uuid.Nil && t.EventID != f.EventID {
			continue
		}
		if f.UserID != uuid.Nil && t.UserID != f.UserID {
			continue
		}
		all = append(all, t)
	}
	sortTicketsNewestFirst(all)

	total := int64(len(all))
	page, limit := normalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func sortTicketsNewestFirst(tickets []models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}

type MemoryPaymentStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]models.Payment
}

func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{payments: make(map[uuid.UUID]models.Payment)}
}

func (s *MemoryPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = *p
	return nil
}

func (s *MemoryPaymentStore) ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPaymentStore) ByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.TicketID == ticketID {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryPaymentStore) Save(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	s.payments[p.ID] = *p
	return nil
}

func (s *MemoryPaymentStore) Decide(ctx context.Context, id uuid.UUID, status, adminNote string, verifiedBy uuid.UUID, verifiedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.AdminNote = adminNote
	p.VerifiedByID = &verifiedBy
	p.VerifiedAt = &verifiedAt
	p.UpdatedAt = time.Now()
	s.payments[id] = p
	return true, nil
}

func (s *MemoryPaymentStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryPaymentStore) ListPending(ctx context.Context, page, limit int) ([]models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Payment
	for _, p := range s.payments {
		if p.Status == models.PaymentPending {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *MemoryPaymentStore) DeleteByTicket(ctx context.Context, ticketID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.payments {
		if p.TicketID == ticketID {
			delete(s.payments, id)
		}
	}
	return nil
}

type MemoryEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]models.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[uuid.UUID]models.Event)}
}

func (s *MemoryEventStore) Create(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.events[e.ID] = *e
	return nil
}

func (s *MemoryEventStore) ByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryEventStore) Save(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return ErrNotFound
	}
	s.events[e.ID] = *e
	return nil
}

func (s *MemoryEventStore) List(ctx context.Context, status string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Event
	for _, e := range s.events {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type MemoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	roles map[string]models.Role
}

func NewMemoryUserStore() *MemoryUserStore {
	s := &MemoryUserStore{
		users: make(map[uuid.UUID]models.User),
		roles: make(map[string]models.Role),
	}
	for _, name := range []string{models.RoleAdmin, models.RoleOrganizer, models.RoleAttendee} {
		s.roles[name] = models.Role{ID: uuid.New(), Name: name}
	}
	return s
}

func (s *MemoryUserStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Save(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

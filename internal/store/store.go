// Package store defines the narrow persistence capabilities the ticket core
// depends on, with a gorm/postgres implementation for production and an
// in-memory implementation for tests. Cross-request consistency relies on
// per-row atomicity: the conditional-update methods are the serialization
// points for the lifecycle's races.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tixgate/tixgate/internal/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("store: record not found")

// ErrDuplicateAccessKey is returned by TicketStore.Create when the unique
// index on access_key rejects the write. Callers regenerate and retry.
var ErrDuplicateAccessKey = errors.New("store: duplicate access key")

// TicketFilter narrows admin ticket listings. Zero values mean "any".
type TicketFilter struct {
	Status  string
	EventID uuid.UUID
	UserID  uuid.UUID
	Page    int
	Limit   int
}

type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ByAccessKey(ctx context.Context, key string) (*models.Ticket, error)
	AccessKeyExists(ctx context.Context, key string) (bool, error)
	Save(ctx context.Context, t *models.Ticket) error

	// TransitionStatus moves the ticket from one status to another as a
	// single conditional update, reporting whether the row was actually in
	// the from status. This is the compare-and-swap behind one-time entry
	// scanning.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// CountActiveByEvent counts tickets holding capacity for an event,
	// which excludes cancelled and expired ones.
	CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]models.Ticket, int64, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	// ByTicket returns the ticket's single payment record, or ErrNotFound.
	ByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error)
	Save(ctx context.Context, p *models.Payment) error

	// Decide records an admin verdict as a single conditional update
	// guarded on the payment still being pending, reporting whether the
	// guard held. The guard must be re-checked at write time because a
	// resubmission or a competing admin may have acted in between.
	Decide(ctx context.Context, id uuid.UUID, status, adminNote string, verifiedBy uuid.UUID, verifiedAt time.Time) (bool, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
	ListPending(ctx context.Context, page, limit int) ([]models.Payment, int64, error)
	DeleteByTicket(ctx context.Context, ticketID uuid.UUID) error
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Save(ctx context.Context, e *models.Event) error
	// List returns events filtered by status; empty status means all.
	List(ctx context.Context, status string) ([]models.Event, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
	RoleByName(ctx context.Context, name string) (*models.Role, error)
}

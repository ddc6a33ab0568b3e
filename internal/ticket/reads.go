package ticket

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tixgate/tixgate/internal/apperr"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/store"
)

// MyTickets returns the acting user's tickets, newest first, with the expiry
// override applied lazily to each.
func (s *Service) MyTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("listing tickets", err)
	}
	s.expireList(ctx, tickets)
	return tickets, nil
}

// ByID returns a single ticket, visible to admins, the event's organizer,
// and the ticket owner.
func (s *Service) ByID(ctx context.Context, ticketID, actingUserID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.tickets.ByID(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Ticket not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading ticket", err)
	}

	actor, err := s.users.ByID(ctx, actingUserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}

	isAdmin := actor.Role.Name == models.RoleAdmin
	isOrganizer := ticket.OrganizerID == actingUserID
	isOwner := ticket.UserID == actingUserID
	if !isAdmin && !isOrganizer && !isOwner {
		return nil, apperr.Forbidden("You don't have permission to view this ticket")
	}

	if event, eerr := s.events.ByID(ctx, ticket.EventID); eerr == nil {
		s.expireIfPast(ctx, ticket, event)
	}
	return ticket, nil
}

// ByEvent returns all tickets of an event for its organizer (or an admin).
func (s *Service) ByEvent(ctx context.Context, eventID, actingUserID uuid.UUID) ([]models.Ticket, error) {
	event, err := s.events.ByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Event not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading event", err)
	}

	actor, err := s.users.ByID(ctx, actingUserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}

	if actor.Role.Name != models.RoleAdmin && event.CreatedByID != actingUserID {
		return nil, apperr.Forbidden("You can only view tickets for your own events")
	}

	tickets, err := s.tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Internal("listing tickets", err)
	}
	s.expireList(ctx, tickets)
	return tickets, nil
}

// ListAll is the admin listing with filters and pagination.
func (s *Service) ListAll(ctx context.Context, f store.TicketFilter) ([]models.Ticket, int64, error) {
	tickets, total, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal("listing tickets", err)
	}
	s.expireList(ctx, tickets)
	return tickets, total, nil
}

func (s *Service) expireList(ctx context.Context, tickets []models.Ticket) {
	events := make(map[uuid.UUID]*models.Event)
	for i := range tickets {
		t := &tickets[i]
		if !models.CanExpire(t.Status) {
			continue
		}
		event, ok := events[t.EventID]
		if !ok {
			loaded, err := s.events.ByID(ctx, t.EventID)
			if err != nil {
				continue
			}
			event = loaded
			events[t.EventID] = event
		}
		s.expireIfPast(ctx, t, event)
	}
}

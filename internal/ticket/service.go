// Package ticket implements the ticket lifecycle state machine and the
// entry scanner.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixgate/tixgate/internal/accesskey"
	"github.com/tixgate/tixgate/internal/apperr"
	"github.com/tixgate/tixgate/internal/mailer"
	"github.com/tixgate/tixgate/internal/metrics"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/storage"
	"github.com/tixgate/tixgate/internal/store"
)

// QRIssuer renders an access key into a stored image artifact.
type QRIssuer interface {
	Issue(payload string) (string, error)
}

type Deps struct {
	Tickets  store.TicketStore
	Payments store.PaymentStore
	Events   store.EventStore
	Users    store.UserStore
	Files    storage.FileStore
	QR       QRIssuer
	Keys     *accesskey.Generator
	Mail     mailer.Mailer
	Logger   *zap.Logger
}

type Service struct {
	tickets  store.TicketStore
	payments store.PaymentStore
	events   store.EventStore
	users    store.UserStore
	files    storage.FileStore
	qr       QRIssuer
	keys     *accesskey.Generator
	mail     mailer.Mailer
	log      *zap.Logger
	now      func() time.Time
}

func NewService(deps Deps) *Service {
	return &Service{
		tickets:  deps.Tickets,
		payments: deps.Payments,
		events:   deps.Events,
		users:    deps.Users,
		files:    deps.Files,
		qr:       deps.QR,
		keys:     deps.Keys,
		mail:     deps.Mail,
		log:      deps.Logger,
		now:      time.Now,
	}
}

type CreateInput struct {
	EventID  uuid.UUID
	Username string
	Email    string
	Phone    string
	UserID   uuid.UUID
}

// Create issues a ticket in pending_payment with its access key and QR
// artifact assigned immediately, so the buyer holds the credential before
// payment is proven. The ticket stays non-confirmed until payment clears,
// and the scanner rejects non-confirmed tickets regardless of credential
// possession.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Ticket, error) {
	event, err := s.events.ByID(ctx, in.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Event not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading event", err)
	}

	if event.Status != models.EventApproved {
		return nil, apperr.InvalidState("Event is not approved yet")
	}
	if event.HasEnded(s.now()) {
		return nil, apperr.InvalidState("Cannot create ticket for past events")
	}

	if event.TotalTickets > 0 {
		sold, err := s.tickets.CountActiveByEvent(ctx, event.ID)
		if err != nil {
			return nil, apperr.Internal("counting sold tickets", err)
		}
		if sold >= int64(event.TotalTickets) {
			return nil, apperr.InvalidState("Event is sold out")
		}
	}

	// The generate-check-retry loop is re-driven on a write-time conflict:
	// the existence check and the insert are not atomic, and the unique
	// index is the real arbiter.
	var ticket *models.Ticket
	for attempt := 0; attempt < accesskey.MaxAttempts; attempt++ {
		key, err := accesskey.GenerateUnique(ctx, s.keys, s.tickets.AccessKeyExists)
		if err != nil {
			return nil, err
		}

		qrURL, err := s.qr.Issue(key)
		if err != nil {
			// A ticket without a renderable QR beats no ticket; the QR is
			// re-issued at payment approval if still absent.
			s.log.Warn("qr code generation failed during ticket creation",
				zap.String("access_key", key), zap.Error(err))
			qrURL = ""
		}

		ticket = &models.Ticket{
			UserID:      in.UserID,
			EventID:     event.ID,
			OrganizerID: event.CreatedByID,
			Username:    in.Username,
			Email:       in.Email,
			Phone:       in.Phone,
			Status:      models.StatusPendingPayment,
			AccessKey:   key,
			QRCodeURL:   qrURL,
		}

		err = s.tickets.Create(ctx, ticket)
		if errors.Is(err, store.ErrDuplicateAccessKey) {
			s.log.Warn("access key collision at persistence time, regenerating",
				zap.String("access_key", key))
			continue
		}
		if err != nil {
			return nil, apperr.Internal("creating ticket", err)
		}

		metrics.TicketsCreatedTotal.Inc()
		s.log.Info("ticket created",
			zap.String("ticket_id", ticket.ID.String()),
			zap.String("event_id", event.ID.String()),
			zap.String("status", ticket.Status))

		s.notify(in.Email, "Ticket reserved: "+event.Title,
			fmt.Sprintf("Your ticket for %s is reserved. Ticket number: %s. Please submit your payment to confirm it.", event.Title, key))

		return ticket, nil
	}

	return nil, apperr.ExhaustedRetries("could not persist ticket with a unique access key")
}

// ScanResult is what the door operator sees on a granted entry.
type ScanResult struct {
	Ticket    *models.Ticket
	Event     *models.Event
	Buyer     *models.User
	ScannedAt time.Time
}

// Scan validates an access key at the door and consumes the ticket exactly
// once. The confirmed-to-used move is a conditional update; of two
// concurrent scans one wins and the other deterministically reports
// "already used".
func (s *Service) Scan(ctx context.Context, key string) (*ScanResult, error) {
	if key == "" {
		return nil, apperr.Validation("Access key is required")
	}

	ticket, err := s.tickets.ByAccessKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		metrics.ScansTotal.WithLabelValues("not_found").Inc()
		return nil, apperr.NotFound("Invalid access key. Ticket not found.")
	}
	if err != nil {
		return nil, apperr.Internal("looking up ticket", err)
	}

	event, err := s.events.ByID(ctx, ticket.EventID)
	if err != nil {
		return nil, apperr.Internal("loading ticket event", err)
	}

	s.expireIfPast(ctx, ticket, event)
	if ticket.Status == models.StatusExpired {
		metrics.ScansTotal.WithLabelValues("expired").Inc()
		return nil, apperr.InvalidTicketState("Event has ended. This ticket is expired.", ticket.Status)
	}

	if ticket.Status == models.StatusUsed {
		metrics.ScansTotal.WithLabelValues("already_used").Inc()
		return nil, apperr.InvalidTicketState("Ticket has already been used", ticket.Status)
	}

	if ticket.Status != models.StatusConfirmed {
		metrics.ScansTotal.WithLabelValues("wrong_status").Inc()
		return nil, apperr.InvalidTicketState(
			fmt.Sprintf("Ticket is not confirmed. Current status: %s", ticket.Status), ticket.Status)
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticket.ID, models.StatusConfirmed, models.StatusUsed)
	if err != nil {
		return nil, apperr.Internal("marking ticket used", err)
	}
	if !ok {
		// Lost the race to a concurrent scan.
		metrics.ScansTotal.WithLabelValues("already_used").Inc()
		return nil, apperr.InvalidTicketState("Ticket has already been used", models.StatusUsed)
	}
	ticket.Status = models.StatusUsed

	buyer, err := s.users.ByID(ctx, ticket.UserID)
	if err != nil {
		buyer = nil
	}

	metrics.ScansTotal.WithLabelValues("granted").Inc()
	s.log.Info("entry granted",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("event_id", event.ID.String()))

	return &ScanResult{
		Ticket:    ticket,
		Event:     event,
		Buyer:     buyer,
		ScannedAt: s.now(),
	}, nil
}

// UpdateStatus applies an explicit status change. Admins may set any defined
// status; the event's organizer may only consume or cancel a confirmed
// ticket. The expiry override always wins over the requested transition once
// the event has passed.
func (s *Service) UpdateStatus(ctx context.Context, ticketID uuid.UUID, newStatus string, actingUserID uuid.UUID) (*models.Ticket, error) {
	if !models.IsValidTicketStatus(newStatus) {
		return nil, apperr.Validation("Invalid status value: " + newStatus)
	}

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
	if !isAdmin && !isOrganizer {
		return nil, apperr.Forbidden("Only admin or the event organizer can update ticket status")
	}

	event, err := s.events.ByID(ctx, ticket.EventID)
	if err != nil {
		return nil, apperr.Internal("loading ticket event", err)
	}

	if s.expireIfPast(ctx, ticket, event) {
		return ticket, nil
	}

	if isAdmin {
		ticket.Status = newStatus
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return nil, apperr.Internal("updating ticket status", err)
		}
		return ticket, nil
	}

	if newStatus != models.StatusUsed && newStatus != models.StatusCancelled {
		return nil, apperr.Validation("Invalid status for your role. Allowed values: used, cancelled")
	}
	if !models.CanTransition(ticket.Status, newStatus) {
		return nil, apperr.InvalidTicketState(
			fmt.Sprintf("Cannot move ticket from %s to %s", ticket.Status, newStatus), ticket.Status)
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticket.ID, ticket.Status, newStatus)
	if err != nil {
		return nil, apperr.Internal("updating ticket status", err)
	}
	if !ok {
		fresh, ferr := s.tickets.ByID(ctx, ticket.ID)
		current := ticket.Status
		if ferr == nil {
			current = fresh.Status
		}
		return nil, apperr.InvalidTicketState(
			fmt.Sprintf("Ticket status changed concurrently. Current status: %s", current), current)
	}
	ticket.Status = newStatus
	return ticket, nil
}

// Delete hard-removes a ticket together with its payment record and stored
// artifacts. Owners may delete only before confirmation; admins always.
// File removal is best-effort cleanup, never transactional with the row
// deletes.
func (s *Service) Delete(ctx context.Context, ticketID, actingUserID uuid.UUID) (*models.Ticket, error) {
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
	isOwner := ticket.UserID == actingUserID
	if !isAdmin && !isOwner {
		return nil, apperr.Forbidden("You can only delete your own tickets")
	}
	if !isAdmin && ticket.Status != models.StatusPendingPayment && ticket.Status != models.StatusPaymentInReview {
		return nil, apperr.InvalidTicketState(
			fmt.Sprintf("Tickets with status %q cannot be deleted", ticket.Status), ticket.Status)
	}

	cleanup := newCleanup(s.files, s.log)
	cleanup.add(ticket.QRCodeURL)
	cleanup.add(ticket.PaymentScreenshotURL)
	if payment, err := s.payments.ByTicket(ctx, ticket.ID); err == nil {
		cleanup.add(payment.ScreenshotURL)
	}

	if err := s.payments.DeleteByTicket(ctx, ticket.ID); err != nil {
		return nil, apperr.Internal("deleting payment records", err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return nil, apperr.Internal("deleting ticket", err)
	}

	cleanup.run()

	s.log.Info("ticket deleted",
		zap.String("ticket_id", ticket.ID.String()),
		zap.Bool("by_admin", isAdmin),
		zap.String("status", ticket.Status))

	return ticket, nil
}

// expireIfPast lazily applies the expiry override: once the event's start
// time has passed, any non-terminal ticket becomes expired on the next read
// or scan. Used and cancelled are never overridden.
func (s *Service) expireIfPast(ctx context.Context, ticket *models.Ticket, event *models.Event) bool {
	if event == nil || !event.HasEnded(s.now()) || !models.CanExpire(ticket.Status) {
		return false
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticket.ID, ticket.Status, models.StatusExpired)
	if err != nil {
		s.log.Warn("failed to persist ticket expiry", zap.String("ticket_id", ticket.ID.String()), zap.Error(err))
		return false
	}
	if ok {
		ticket.Status = models.StatusExpired
		return true
	}

	// Someone else moved the ticket first; reflect whatever it is now.
	if fresh, err := s.tickets.ByID(ctx, ticket.ID); err == nil {
		ticket.Status = fresh.Status
	}
	return ticket.Status == models.StatusExpired
}

func (s *Service) notify(to, subject, body string) {
	if s.mail == nil || to == "" {
		return
	}
	go func() {
		if err := s.mail.Send(to, subject, body); err != nil {
			s.log.Warn("notification mail failed", zap.String("to", to), zap.Error(err))
		}
	}()
}

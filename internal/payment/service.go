// Package payment implements payment reconciliation: screenshot submission
// by buyers and accept/reject verification by admins, with ticket state
// updated as a side effect.
package payment

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
	"github.com/tixgate/tixgate/internal/ticket"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"

	screenshotFolder = "payments"
)

type Deps struct {
	Tickets  store.TicketStore
	Payments store.PaymentStore
	Events   store.EventStore
	Users    store.UserStore
	Files    storage.FileStore
	QR       ticket.QRIssuer
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
	qr       ticket.QRIssuer
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

type SubmitInput struct {
	TicketID      uuid.UUID
	Method        string
	Screenshot    []byte
	ScreenshotExt string
	UserID        uuid.UUID
}

// Submit records a proof-of-payment screenshot for a ticket. The amount is
// always derived from the event's ticket price; there is no client amount
// input to honor or reject. Resubmission while the prior record is pending
// updates that record in place and removes the superseded screenshot file.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Payment, *models.Ticket, error) {
	if len(in.Screenshot) == 0 {
		return nil, nil, apperr.Validation("Payment screenshot is required")
	}
	if in.Method == "" {
		in.Method = "manual"
	}

	tk, err := s.tickets.ByID(ctx, in.TicketID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFound("Ticket not found")
	}
	if err != nil {
		return nil, nil, apperr.Internal("loading ticket", err)
	}

	if tk.UserID != in.UserID {
		return nil, nil, apperr.Forbidden("This ticket does not belong to you")
	}

	if tk.Status == models.StatusConfirmed || tk.Status == models.StatusUsed {
		return nil, nil, apperr.InvalidTicketState(
			fmt.Sprintf("Payment cannot be submitted. Ticket status is already: %s", tk.Status), tk.Status)
	}
	if tk.Status != models.StatusPendingPayment && tk.Status != models.StatusPaymentInReview {
		return nil, nil, apperr.InvalidTicketState(
			fmt.Sprintf("Payment cannot be submitted. Ticket status is: %s", tk.Status), tk.Status)
	}

	event, err := s.events.ByID(ctx, tk.EventID)
	if err != nil {
		return nil, nil, apperr.Internal("loading event", err)
	}
	// Server-side source of truth; zero is fine for free events.
	amount := event.TicketPrice

	screenshotURL, err := s.files.Save(screenshotFolder, in.ScreenshotExt, in.Screenshot)
	if err != nil {
		return nil, nil, apperr.Internal("storing payment screenshot", err)
	}

	existing, err := s.payments.ByTicket(ctx, tk.ID)
	switch {
	case err == nil:
		if existing.ScreenshotURL != "" && existing.ScreenshotURL != screenshotURL {
			if derr := s.files.Delete(existing.ScreenshotURL); derr != nil {
				s.log.Warn("failed to delete superseded screenshot",
					zap.String("ref", existing.ScreenshotURL), zap.Error(derr))
			}
		}
		existing.Amount = amount
		existing.Method = in.Method
		existing.ScreenshotURL = screenshotURL
		existing.Status = models.PaymentPending
		existing.AdminNote = ""
		existing.VerifiedAt = nil
		existing.VerifiedByID = nil
		if err := s.payments.Save(ctx, existing); err != nil {
			return nil, nil, apperr.Internal("updating payment record", err)
		}
	case errors.Is(err, store.ErrNotFound):
		existing = &models.Payment{
			TicketID:      tk.ID,
			UserID:        in.UserID,
			EventID:       event.ID,
			Amount:        amount,
			Method:        in.Method,
			ScreenshotURL: screenshotURL,
			Status:        models.PaymentPending,
		}
		if err := s.payments.Create(ctx, existing); err != nil {
			return nil, nil, apperr.Internal("creating payment record", err)
		}
	default:
		return nil, nil, apperr.Internal("loading payment record", err)
	}

	tk.Status = models.StatusPaymentInReview
	tk.PaymentScreenshotURL = screenshotURL
	if err := s.tickets.Save(ctx, tk); err != nil {
		return nil, nil, apperr.Internal("updating ticket", err)
	}

	metrics.PaymentsSubmittedTotal.Inc()
	s.log.Info("payment submitted",
		zap.String("ticket_id", tk.ID.String()),
		zap.String("amount", amount.String()),
		zap.String("status", tk.Status))

	return existing, tk, nil
}

// Verify records an admin decision on a pending payment. The pending guard
// is enforced by a conditional update at write time, so a resubmission or a
// competing admin decision in between turns this into InvalidState rather
// than a silent overwrite.
func (s *Service) Verify(ctx context.Context, paymentID uuid.UUID, action, adminNote string, adminID uuid.UUID) (*models.Payment, *models.Ticket, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, nil, apperr.Validation("Action must be 'approve' or 'reject'")
	}

	payment, err := s.payments.ByID(ctx, paymentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFound("Payment not found")
	}
	if err != nil {
		return nil, nil, apperr.Internal("loading payment", err)
	}

	newStatus := models.PaymentApproved
	if action == ActionReject {
		newStatus = models.PaymentRejected
	}

	decided, err := s.payments.Decide(ctx, payment.ID, newStatus, adminNote, adminID, s.now())
	if err != nil {
		return nil, nil, apperr.Internal("recording payment decision", err)
	}
	if !decided {
		fresh, ferr := s.payments.ByID(ctx, payment.ID)
		current := payment.Status
		if ferr == nil {
			current = fresh.Status
		}
		return nil, nil, apperr.InvalidState(fmt.Sprintf("Payment has already been %s", current))
	}

	payment, err = s.payments.ByID(ctx, payment.ID)
	if err != nil {
		return nil, nil, apperr.Internal("reloading payment", err)
	}

	tk, err := s.tickets.ByID(ctx, payment.TicketID)
	if err != nil {
		return nil, nil, apperr.Internal("loading ticket", err)
	}

	if action == ActionApprove {
		if err := s.confirmTicket(ctx, tk); err != nil {
			return nil, nil, err
		}
		metrics.PaymentsDecidedTotal.WithLabelValues(ActionApprove).Inc()
		s.notify(tk.Email, "Payment approved",
			"Your payment was approved and your ticket is confirmed. Show the QR code at the entrance.")
		return payment, tk, nil
	}

	tk.Status = models.StatusPendingPayment
	// The ticket's screenshot reference is cleared; the payment record keeps
	// its own copy for audit.
	tk.PaymentScreenshotURL = ""
	if err := s.tickets.Save(ctx, tk); err != nil {
		return nil, nil, apperr.Internal("updating ticket", err)
	}

	metrics.PaymentsDecidedTotal.WithLabelValues(ActionReject).Inc()
	s.notify(tk.Email, "Payment rejected",
		"Your payment could not be verified. Please submit a new payment screenshot. Note: "+adminNote)
	return payment, tk, nil
}

// confirmTicket moves the ticket to confirmed, backfilling the access key
// for legacy rows that predate key-at-creation and re-issuing the QR
// artifact. A failed render is logged and left for a later re-issue; it
// never blocks confirmation.
func (s *Service) confirmTicket(ctx context.Context, tk *models.Ticket) error {
	if tk.AccessKey == "" {
		key, err := accesskey.GenerateUnique(ctx, s.keys, s.tickets.AccessKeyExists)
		if err != nil {
			return err
		}
		tk.AccessKey = key
	}

	if qrURL, err := s.qr.Issue(tk.AccessKey); err != nil {
		s.log.Warn("qr code generation failed during payment approval",
			zap.String("ticket_id", tk.ID.String()), zap.Error(err))
	} else {
		tk.QRCodeURL = qrURL
	}

	tk.Status = models.StatusConfirmed
	if err := s.tickets.Save(ctx, tk); err != nil {
		return apperr.Internal("confirming ticket", err)
	}

	s.log.Info("payment approved, ticket confirmed",
		zap.String("ticket_id", tk.ID.String()),
		zap.String("access_key", tk.AccessKey))
	return nil
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

package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tixgate/tixgate/internal/apperr"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/store"
)

// MyPayments returns the acting user's payment records, newest first.
func (s *Service) MyPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("listing payments", err)
	}
	return payments, nil
}

// ByID returns a payment visible to its owner or an admin.
func (s *Service) ByID(ctx context.Context, paymentID, actingUserID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.ByID(ctx, paymentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading payment", err)
	}

	actor, err := s.users.ByID(ctx, actingUserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("loading user", err)
	}

	if actor.Role.Name != models.RoleAdmin && payment.UserID != actingUserID {
		return nil, apperr.Forbidden("You can only view your own payments")
	}
	return payment, nil
}

// ListPending is the admin review queue: pending payments, newest
// submissions first, paginated.
func (s *Service) ListPending(ctx context.Context, page, limit int) ([]models.Payment, int64, error) {
	payments, total, err := s.payments.ListPending(ctx, page, limit)
	if err != nil {
		return nil, 0, apperr.Internal("listing pending payments", err)
	}
	return payments, total, nil
}

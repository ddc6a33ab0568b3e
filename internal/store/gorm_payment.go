package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tixgate/tixgate/internal/models"
)

type GormPaymentStore struct {
	db *gorm.DB
}

func NewGormPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

func (s *GormPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormPaymentStore) ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormPaymentStore) ByTicket(ctx context.Context, ticketID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormPaymentStore) Save(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *GormPaymentStore) Decide(ctx context.Context, id uuid.UUID, status, adminNote string, verifiedBy uuid.UUID, verifiedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]any{
			"status":         status,
			"admin_note":     adminNote,
			"verified_by_id": verifiedBy,
			"verified_at":    verifiedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormPaymentStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (s *GormPaymentStore) ListPending(ctx context.Context, page, limit int) ([]models.Payment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{}).Where("status = ?", models.PaymentPending)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit)
	var payments []models.Payment
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	return payments, total, err
}

func (s *GormPaymentStore) DeleteByTicket(ctx context.Context, ticketID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Delete(&models.Payment{}).Error
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

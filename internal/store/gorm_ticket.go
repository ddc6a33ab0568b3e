package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tixgate/tixgate/internal/models"
)

const pgUniqueViolation = "23505"

type GormTicketStore struct {
	db *gorm.DB
}

func NewGormTicketStore(db *gorm.DB) *GormTicketStore {
	return &GormTicketStore{db: db}
}

func (s *GormTicketStore) Create(ctx context.Context, t *models.Ticket) error {
	err := s.db.WithContext(ctx).Create(t).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateAccessKey
	}
	return err
}

func (s *GormTicketStore) ByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *GormTicketStore) ByAccessKey(ctx context.Context, key string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("access_key = ?", key).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *GormTicketStore) AccessKeyExists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("access_key = ?", key).Count(&count).Error
	return count > 0, err
}

func (s *GormTicketStore) Save(ctx context.Context, t *models.Ticket) error {
	return s.db.WithContext(ctx).Save(t).Error
}

func (s *GormTicketStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormTicketStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ticket{}).Error
}

func (s *GormTicketStore) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("event_id = ? AND status NOT IN ?", eventID, []string{models.StatusCancelled, models.StatusExpired}).
		Count(&count).Error
	return count, err
}

func (s *GormTicketStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (s *GormTicketStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (s *GormTicketStore) List(ctx context.Context, f TicketFilter) ([]models.Ticket, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Ticket{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.EventID != uuid.Nil {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit)
	var tickets []models.Ticket
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tickets).Error
	return tickets, total, err
}

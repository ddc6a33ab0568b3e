package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tixgate/tixgate/internal/models"
)

type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

func (s *GormEventStore) Create(ctx context.Context, e *models.Event) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *GormEventStore) ByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) Save(ctx context.Context, e *models.Event) error {
	return s.db.WithContext(ctx).Save(e).Error
}

func (s *GormEventStore) List(ctx context.Context, status string) ([]models.Event, error) {
	q := s.db.WithContext(ctx).Model(&models.Event{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var events []models.Event
	err := q.Order("date ASC").Find(&events).Error
	return events, err
}

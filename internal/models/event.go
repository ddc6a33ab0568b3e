package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EventPending  = "pending"
	EventApproved = "approved"
)

type Event struct {
	gorm.Model
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	Date        time.Time `gorm:"not null;index"`
	Time        string    `gorm:"not null"`
	Location    string    `gorm:"not null"`
	ImagePath   string
	Email       string          `gorm:"not null"`
	Phone       string          `gorm:"not null"`
	TicketPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	// TotalTickets caps issuance for the event. Zero means unlimited.
	TotalTickets int    `gorm:"not null;default:0"`
	Status       string `gorm:"not null;default:'pending';index"`
	CreatedByID  uuid.UUID
	CreatedBy    User `gorm:"foreignKey:CreatedByID"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// HasEnded reports whether the event's start time is already behind now.
func (event *Event) HasEnded(now time.Time) bool {
	return event.Date.Before(now)
}

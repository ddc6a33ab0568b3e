package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// Payment records one submitted proof-of-payment for a ticket. A ticket has
// at most one active payment record; resubmission while pending updates the
// record in place rather than inserting a new row.
type Payment struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	TicketID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EventID  uuid.UUID `gorm:"type:uuid;not null;index"`

	// Amount is always derived from the event's ticket price at submission
	// time, never taken from client input. Zero is valid for free events.
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Method string          `gorm:"not null"`

	ScreenshotURL string `gorm:"not null"`

	Status       string `gorm:"not null;default:'pending';index"`
	AdminNote    string
	VerifiedAt   *time.Time
	VerifiedByID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}

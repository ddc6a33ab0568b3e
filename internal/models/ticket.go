package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is the central entity of the system. The contact fields are a
// snapshot captured at creation time and never re-synced from the user
// profile; OrganizerID is denormalized from the event's creator at creation
// and stays frozen even if event ownership later changes.
type Ticket struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	User        *User     `gorm:"foreignKey:UserID"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Event       *Event    `gorm:"foreignKey:EventID"`
	OrganizerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Username string `gorm:"not null"`
	Email    string `gorm:"not null"`
	Phone    string `gorm:"not null"`

	Status string `gorm:"not null;default:'pending_payment';index"`

	// AccessKey is the entry credential and the QR payload. Globally unique
	// for the lifetime of the system; the unique index is the hard backstop
	// behind the generate-and-check retry loop.
	AccessKey string `gorm:"uniqueIndex;not null"`

	QRCodeURL            string
	PaymentScreenshotURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}

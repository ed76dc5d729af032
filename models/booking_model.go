package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StudentID  uuid.UUID `gorm:"not null;index" json:"student_id"`
	ProviderID uuid.UUID `gorm:"not null;index" json:"provider_id"`
	ServiceID  uuid.UUID `gorm:"not null" json:"service_id"`

	// DateTime is the booked instant. The matching availability slot is
	// resolved by range query at mutation time, never by foreign key; a
	// booking without a backing slot is tolerated.
	DateTime time.Time `gorm:"not null;index" json:"date_time"`

	Status   string  `gorm:"size:20;not null;default:'pending'" json:"status"`
	Price    float64 `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency string  `gorm:"size:3" json:"currency"`
	Notes    *string `gorm:"type:text" json:"notes"`

	Student  User    `gorm:"foreignkey:StudentID" json:"student,omitempty"`
	Provider User    `gorm:"foreignkey:ProviderID" json:"provider,omitempty"`
	Service  Service `gorm:"foreignkey:ServiceID" json:"service,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

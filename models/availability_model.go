package models

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilitySlot struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProviderID uuid.UUID  `gorm:"not null;index" json:"-"`
	ServiceID  *uuid.UUID `gorm:"index" json:"service_id"`

	Date      time.Time `gorm:"type:date;not null;index" json:"date"`
	StartTime TimeOfDay `gorm:"not null" json:"start_time"`
	EndTime   TimeOfDay `gorm:"not null" json:"end_time"`

	MaxBookings     int `gorm:"not null;default:1" json:"max_bookings"`
	CurrentBookings int `gorm:"not null;default:0" json:"current_bookings"`

	IsAvailable bool    `gorm:"not null;default:true" json:"is_available"`
	IsBooked    bool    `gorm:"not null;default:false" json:"is_booked"`
	Notes       *string `gorm:"type:text" json:"notes"`

	Provider User    `gorm:"foreignkey:ProviderID" json:"provider,omitempty"`
	Service  Service `gorm:"foreignkey:ServiceID" json:"service,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyBookingDelta adjusts the booking counter and recomputes the derived
// flags. The counter is clamped to [0, MaxBookings]; IsBooked and IsAvailable
// are always rewritten together so no stored inconsistency survives a
// reconciliation.
func (s *AvailabilitySlot) ApplyBookingDelta(delta int) {
	s.CurrentBookings += delta
	if s.CurrentBookings < 0 {
		s.CurrentBookings = 0
	}
	if s.CurrentBookings > s.MaxBookings {
		s.CurrentBookings = s.MaxBookings
	}
	s.IsBooked = s.CurrentBookings >= s.MaxBookings
	s.IsAvailable = !s.IsBooked
}

func (s *AvailabilitySlot) AvailableSpots() int {
	spots := s.MaxBookings - s.CurrentBookings
	if spots < 0 {
		return 0
	}
	return spots
}

// Contains reports whether a clock time falls inside the slot's range,
// boundaries included.
func (s *AvailabilitySlot) Contains(t TimeOfDay) bool {
	return s.StartTime <= t && t <= s.EndTime
}

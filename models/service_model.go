package models

import (
	"time"

	"github.com/google/uuid"
)

type Service struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProviderID      uuid.UUID `gorm:"not null" json:"provider_id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Description     *string   `gorm:"type:text" json:"description"`
	Price           float64   `gorm:"type:numeric(10,2);not null;default:0.00" json:"price"`
	Currency        string    `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	DurationMinutes int       `gorm:"not null;default:60" json:"duration_minutes"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`

	Provider User `gorm:"foreignkey:ProviderID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

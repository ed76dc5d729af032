package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EarningMetadata snapshots the booking context at completion time so the
// earning's displayed context survives later edits to the service or student
// records.
type EarningMetadata struct {
	ServiceName string    `json:"service_name"`
	StudentName string    `json:"student_name"`
	CompletedAt time.Time `json:"completed_at"`
}

func (m EarningMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *EarningMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into EarningMetadata", src)
	}
}

type Earning struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProviderID uuid.UUID `gorm:"not null;index" json:"provider_id"`
	BookingID  uuid.UUID `gorm:"not null;unique" json:"booking_id"`

	GrossAmount float64 `gorm:"type:numeric(10,2);not null" json:"gross_amount"`
	PlatformFee float64 `gorm:"type:numeric(10,2);not null" json:"platform_fee"`
	Amount      float64 `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency    string  `gorm:"size:3;not null" json:"currency"`

	Status    string          `gorm:"size:20;not null;default:'pending_clearance';index" json:"status"`
	ClearedAt *time.Time      `json:"cleared_at"`
	PayoutID  *uuid.UUID      `gorm:"index" json:"payout_id"`
	Metadata  EarningMetadata `gorm:"type:jsonb" json:"metadata"`

	Provider User    `gorm:"foreignkey:ProviderID" json:"-"`
	Booking  Booking `gorm:"foreignkey:BookingID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PayoutMetadata struct {
	EarningCount    int    `json:"earning_count,omitempty"`
	GatewayResponse string `json:"gateway_response,omitempty"`
	AdminNotes      string `json:"admin_notes,omitempty"`
}

func (m PayoutMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *PayoutMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PayoutMetadata", src)
	}
}

type PayoutRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProviderID uuid.UUID `gorm:"not null;index" json:"provider_id"`

	Amount    float64 `gorm:"type:numeric(10,2);not null" json:"amount"`
	Fees      float64 `gorm:"type:numeric(10,2);not null;default:0.00" json:"fees"`
	NetAmount float64 `gorm:"type:numeric(10,2);not null" json:"net_amount"`

	Status         string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TransactionRef *string        `gorm:"size:255;unique" json:"transaction_ref"`
	FailureReason  *string        `gorm:"type:text" json:"failure_reason"`
	Metadata       PayoutMetadata `gorm:"type:jsonb" json:"metadata"`

	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at"`

	Provider User `gorm:"foreignkey:ProviderID" json:"provider,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

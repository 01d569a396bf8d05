package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

// Bid is a priced offer from a platform against a shipment.
type Bid struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ShipmentID string    `json:"shipment_id" gorm:"size:36;not null"`
	PlatformID string    `json:"platform_id" gorm:"size:36;not null"`
	Platform   *Platform `json:"-" gorm:"foreignKey:PlatformID;constraint:OnDelete:CASCADE"`

	CompanyName           string          `json:"company_name" gorm:"size:200;not null"`
	Price                 decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CurrencyID            string          `json:"-" gorm:"size:36;not null"`
	Currency              *Currency       `json:"currency,omitempty" gorm:"foreignKey:CurrencyID;constraint:OnDelete:RESTRICT"`
	EstimatedDeliveryTime int             `json:"estimated_delivery_time" gorm:"not null"` // hours
	Comment               string          `json:"comment" gorm:"size:500"`
	ContactPerson         string          `json:"contact_person" gorm:"size:100;not null"`
	ContactPhone          string          `json:"contact_phone" gorm:"size:20;not null"`
	ExternalUserID        string          `json:"external_user_id" gorm:"size:100;not null;default:''"` // "" => none

	Status    BidStatus `json:"status" gorm:"size:20;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a time-ordered UUIDv7 so id breaks created_at ties in
// submission order.
func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id.String()
	}
	if b.Status == "" {
		b.Status = BidPending
	}
	return
}

// RejectedBidCacheEntry remembers the fingerprint of a rejected bid so the same
// offer cannot be resubmitted. Rows are append-only.
type RejectedBidCacheEntry struct {
	ID                    string          `json:"id" gorm:"primaryKey;size:36"`
	ShipmentID            string          `json:"shipment_id" gorm:"size:36;not null"`
	PlatformID            string          `json:"platform_id" gorm:"size:36;not null"`
	Price                 decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	EstimatedDeliveryTime int             `json:"estimated_delivery_time" gorm:"not null"`
	CurrencyID            string          `json:"currency_id" gorm:"size:36;not null"`
	ExternalUserID        string          `json:"external_user_id" gorm:"size:100;not null;default:''"`
	RejectedAt            time.Time       `json:"rejected_at" gorm:"not null"`
}

func (RejectedBidCacheEntry) TableName() string {
	return "rejected_bids_cache"
}

func (e *RejectedBidCacheEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return
}

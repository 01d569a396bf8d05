package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShipmentStatus string

const (
	ShipmentActive    ShipmentStatus = "active"
	ShipmentCompleted ShipmentStatus = "completed"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// Shipment is a cargo owner's listing open for bidding. Status only moves
// away from active, and rows are never deleted.
type Shipment struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"-" gorm:"size:36;not null;index"`
	User   *User  `json:"-" gorm:"foreignKey:UserID"`

	PickupLocation       string          `json:"pickup_location" gorm:"not null"`
	PickupDate           time.Time       `json:"pickup_date" gorm:"not null;index"`
	DeliveryLocation     string          `json:"delivery_location" gorm:"not null"`
	CargoTypeID          string          `json:"cargo_type_id" gorm:"size:36;not null"`
	CargoType            *CargoType      `json:"cargo_type,omitempty" gorm:"foreignKey:CargoTypeID;constraint:OnDelete:RESTRICT"`
	CargoVolume          decimal.Decimal `json:"cargo_volume" gorm:"type:numeric(12,2);not null"`
	VolumeUnitID         string          `json:"volume_unit_id" gorm:"size:36;not null"`
	VolumeUnit           *VolumeUnit     `json:"volume_unit,omitempty" gorm:"foreignKey:VolumeUnitID;constraint:OnDelete:RESTRICT"`
	TransportTypeID      string          `json:"transport_type_id" gorm:"size:36;not null"`
	TransportType        *TransportType  `json:"transport_type,omitempty" gorm:"foreignKey:TransportTypeID;constraint:OnDelete:RESTRICT"`
	PreferredCurrencyID  string          `json:"preferred_currency_id" gorm:"size:36;not null"`
	PreferredCurrency    *Currency       `json:"preferred_currency,omitempty" gorm:"foreignKey:PreferredCurrencyID;constraint:OnDelete:RESTRICT"`
	AdditionalConditions string          `json:"additional_conditions" gorm:"size:500"`

	// State
	Status        ShipmentStatus `json:"status" gorm:"size:20;not null;index"`
	SelectedBidID *string        `json:"selected_bid_id" gorm:"size:36"`
	Bids          []Bid          `json:"bids,omitempty" gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

func (s *Shipment) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = ShipmentActive
	}
	return
}

func (s *Shipment) IsActive() bool {
	return s.Status == ShipmentActive
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// BidEvent is the delivery log of a bid status notification.
type BidEvent struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Type       string         `json:"type" gorm:"size:32;not null"`
	BidID      string         `json:"bid_id" gorm:"size:36;not null;index"`
	ShipmentID string         `json:"shipment_id" gorm:"size:36;not null"`
	PlatformID string         `json:"platform_id" gorm:"size:36;not null;index"`
	URL        string         `json:"url" gorm:"size:500"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	StatusCode int            `json:"status_code"` // 0 => request never completed
	Error      string         `json:"error"`
	CreatedAt  time.Time      `json:"created_at"`
}

package bidding

import (
	"fmt"
	"time"

	"cargo-bidding-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Submitter is an authenticated party allowed to place bids. Fingerprints key
// off SubmitterID only, so new submitter kinds need no admission changes.
type Submitter interface {
	SubmitterID() string
}

// Fingerprint identifies an offer for duplicate suppression. Company name is
// deliberately absent: a rejected offer stays rejected under any company name.
type Fingerprint struct {
	ShipmentID     string
	SubmitterID    string
	Price          decimal.Decimal
	ETA            int
	CurrencyID     string
	ExternalUserID string
}

func FingerprintOf(b *models.Bid) Fingerprint {
	return Fingerprint{
		ShipmentID:     b.ShipmentID,
		SubmitterID:    b.PlatformID,
		Price:          b.Price,
		ETA:            b.EstimatedDeliveryTime,
		CurrencyID:     b.CurrencyID,
		ExternalUserID: b.ExternalUserID,
	}
}

func (f Fingerprint) where(db *gorm.DB) *gorm.DB {
	return db.Where(
		"shipment_id = ? AND platform_id = ? AND price = ? AND estimated_delivery_time = ? AND currency_id = ? AND external_user_id = ?",
		f.ShipmentID, f.SubmitterID, f.Price, f.ETA, f.CurrencyID, f.ExternalUserID,
	)
}

// recordRejection is an insert that ignores conflicts on the natural key, so
// concurrent identical rejections all succeed and the first timestamp stays.
// It reports whether a new entry was written.
func recordRejection(db *gorm.DB, f Fingerprint, at time.Time) (bool, error) {
	entry := models.RejectedBidCacheEntry{
		ShipmentID:            f.ShipmentID,
		PlatformID:            f.SubmitterID,
		Price:                 f.Price,
		EstimatedDeliveryTime: f.ETA,
		CurrencyID:            f.CurrencyID,
		ExternalUserID:        f.ExternalUserID,
		RejectedAt:            at,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("record rejected bid: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func wasRejected(db *gorm.DB, f Fingerprint) (bool, error) {
	var n int64
	if err := f.where(db.Model(&models.RejectedBidCacheEntry{})).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup rejected bid cache: %w", err)
	}
	return n > 0, nil
}

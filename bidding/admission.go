package bidding

import (
	"errors"
	"fmt"

	"cargo-bidding-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Proposal is a bid offer awaiting admission.
type Proposal struct {
	Shipment       *models.Shipment
	Submitter      Submitter
	Price          decimal.Decimal
	ETA            int
	Currency       *models.Currency
	CompanyName    string
	ExternalUserID string
}

func (p Proposal) fingerprint() Fingerprint {
	return Fingerprint{
		ShipmentID:     p.Shipment.ID,
		SubmitterID:    p.Submitter.SubmitterID(),
		Price:          p.Price,
		ETA:            p.ETA,
		CurrencyID:     p.Currency.ID,
		ExternalUserID: p.ExternalUserID,
	}
}

// CanSubmitBid decides whether p may be stored as a new pending bid. Checks run
// in a fixed order and the first failure wins. It never writes; callers must
// run it in the same transaction as the insert.
//
// The returned error is only set when the store could not be read.
func CanSubmitBid(db *gorm.DB, p Proposal) (Decision, error) {
	if !p.Shipment.IsActive() {
		return deny(ReasonShipmentNotActive), nil
	}
	if p.Currency.ID != p.Shipment.PreferredCurrencyID {
		return deny(ReasonCurrencyMismatch), nil
	}

	fp := p.fingerprint()

	rejected, err := wasRejected(db, fp)
	if err != nil {
		return Decision{}, err
	}
	if rejected {
		return deny(ReasonDuplicate), nil
	}

	var exact int64
	err = fp.where(db.Model(&models.Bid{})).
		Where("company_name = ?", p.CompanyName).
		Count(&exact).Error
	if err != nil {
		return Decision{}, fmt.Errorf("lookup identical bids: %w", err)
	}
	if exact > 0 {
		return deny(ReasonExactDuplicate), nil
	}

	// Each resubmission by the same submitter must move the price. Bid ids are
	// UUIDv7, so id orders bids created within the same instant.
	var last models.Bid
	err = db.Where("shipment_id = ? AND platform_id = ? AND company_name = ? AND external_user_id = ?",
		fp.ShipmentID, fp.SubmitterID, p.CompanyName, fp.ExternalUserID).
		Order("created_at DESC, id DESC").
		Take(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return allow(), nil
	case err != nil:
		return Decision{}, fmt.Errorf("lookup previous bid: %w", err)
	}
	if last.Price.Equal(p.Price) {
		return deny(ReasonPriceDuplicate), nil
	}

	return allow(), nil
}

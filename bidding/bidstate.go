package bidding

import (
	"errors"
	"fmt"
	"time"

	"cargo-bidding-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// txn is one unit of work. Events collected here are published only after the
// surrounding transaction commits.
type txn struct {
	db     *gorm.DB
	now    time.Time
	events []Event
}

func (t *txn) emit(e Event) {
	t.events = append(t.events, e)
}

// lockShipment loads a shipment and holds its row lock until commit. SQLite
// has no row locks; it serializes writers on its own.
func (t *txn) lockShipment(id string) (*models.Shipment, error) {
	q := t.db
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sh models.Shipment
	err := q.Where("id = ?", id).Take(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	return &sh, nil
}

func (t *txn) loadBid(id string) (*models.Bid, error) {
	var bid models.Bid
	err := t.db.Preload("Platform").Preload("Currency").Where("id = ?", id).Take(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bid: %w", err)
	}
	return &bid, nil
}

func (t *txn) pendingBids(shipmentID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := t.db.Preload("Platform").Preload("Currency").
		Where("shipment_id = ? AND status = ?", shipmentID, models.BidPending).
		Order("created_at").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("load pending bids: %w", err)
	}
	return bids, nil
}

// setBidStatus moves a pending bid to status. The WHERE on status makes a
// stale or repeated transition affect no rows.
func (t *txn) setBidStatus(bid *models.Bid, status models.BidStatus) error {
	if bid.Status != models.BidPending {
		return ErrInvalidTransition
	}
	res := t.db.Model(&models.Bid{}).
		Where("id = ? AND status = ?", bid.ID, models.BidPending).
		Updates(map[string]any{"status": status, "updated_at": t.now})
	if res.Error != nil {
		return fmt.Errorf("update bid %s: %w", bid.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	bid.Status = status
	bid.UpdatedAt = t.now
	return nil
}

// acceptBid is only called from markCompleted.
func (t *txn) acceptBid(sh *models.Shipment, bid *models.Bid) error {
	if err := t.setBidStatus(bid, models.BidAccepted); err != nil {
		return err
	}
	t.emit(newBidEvent(EventBidAccepted, sh, bid, t.now))
	return nil
}

// rejectBid marks bid rejected and records its fingerprint in the rejected-bid
// cache.
func (t *txn) rejectBid(sh *models.Shipment, bid *models.Bid) error {
	if err := t.setBidStatus(bid, models.BidRejected); err != nil {
		return err
	}
	if _, err := recordRejection(t.db, FingerprintOf(bid), t.now); err != nil {
		return err
	}
	t.emit(newBidEvent(EventBidRejected, sh, bid, t.now))
	return nil
}

package bidding

import (
	"fmt"

	"cargo-bidding-backend/models"
)

// closeShipment is the conditional status update out of active. Only one
// concurrent caller can match status = 'active'.
func (t *txn) closeShipment(sh *models.Shipment, updates map[string]any) error {
	if !sh.IsActive() {
		return ErrShipmentNotActive
	}
	updates["updated_at"] = t.now
	res := t.db.Model(&models.Shipment{}).
		Where("id = ? AND status = ?", sh.ID, models.ShipmentActive).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update shipment %s: %w", sh.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrShipmentNotActive
	}
	sh.UpdatedAt = t.now
	return nil
}

// markCompleted selects bid as the winner: the shipment completes, the bid is
// accepted and every other pending bid is rejected.
func (t *txn) markCompleted(sh *models.Shipment, bid *models.Bid) error {
	if !sh.IsActive() {
		return ErrShipmentNotActive
	}
	if bid.ShipmentID != sh.ID {
		return ErrBidNotOwned
	}
	if bid.Status != models.BidPending {
		return ErrBidNotPending
	}

	err := t.closeShipment(sh, map[string]any{
		"status":          models.ShipmentCompleted,
		"completed_at":    t.now,
		"selected_bid_id": bid.ID,
	})
	if err != nil {
		return err
	}
	now := t.now
	sh.Status = models.ShipmentCompleted
	sh.CompletedAt = &now
	sh.SelectedBidID = &bid.ID

	if err := t.acceptBid(sh, bid); err != nil {
		return err
	}

	others, err := t.pendingBids(sh.ID)
	if err != nil {
		return err
	}
	for i := range others {
		if others[i].ID == bid.ID {
			continue
		}
		if err := t.rejectBid(sh, &others[i]); err != nil {
			return err
		}
	}
	return nil
}

// markCancelled closes the listing without a winner and rejects all pending bids.
func (t *txn) markCancelled(sh *models.Shipment) error {
	err := t.closeShipment(sh, map[string]any{
		"status":       models.ShipmentCancelled,
		"cancelled_at": t.now,
	})
	if err != nil {
		return err
	}
	now := t.now
	sh.Status = models.ShipmentCancelled
	sh.CancelledAt = &now

	_, err = t.rejectAllPending(sh)
	return err
}

// rejectAllPending clears the board without touching the shipment status.
func (t *txn) rejectAllPending(sh *models.Shipment) (int, error) {
	pending, err := t.pendingBids(sh.ID)
	if err != nil {
		return 0, err
	}
	for i := range pending {
		if err := t.rejectBid(sh, &pending[i]); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// rejectOne is the owner's explicit rejection of a single bid.
func (t *txn) rejectOne(sh *models.Shipment, bid *models.Bid) error {
	if !sh.IsActive() {
		return ErrShipmentNotActive
	}
	if bid.ShipmentID != sh.ID {
		return ErrBidNotOwned
	}
	if bid.Status != models.BidPending {
		return ErrBidNotPending
	}
	return t.rejectBid(sh, bid)
}

package bidding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cargo-bidding-backend/models"
)

// Reconcile rejects bids left pending on shipments that are no longer active,
// e.g. after a crash between closing a shipment and finishing its cascade.
// Each shipment is handled in its own transaction.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("status <> ?", models.ShipmentActive).
		Where("EXISTS (SELECT 1 FROM bids WHERE bids.shipment_id = shipments.id AND bids.status = ?)", models.BidPending).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find shipments to reconcile: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := s.RejectAllPendingBids(ctx, id)
		if err != nil {
			return total, fmt.Errorf("reconcile shipment %s: %w", id, err)
		}
		total += n
	}
	return total, nil
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Reconcile(ctx)
			if err != nil {
				s.log.Error("reconcile failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.log.Warn("reconciled leftover pending bids", slog.Int("count", n))
			}
		}
	}
}

package database

import (
	"fmt"

	"cargo-bidding-backend/models"

	"gorm.io/gorm"
)

// Migrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns)
// - Indexes, including the natural keys used for bid deduplication
// - CHECK constraints (postgres only)
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// --- AutoMigrate tables/columns/index tags (non-destructive) ---
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Currency{},
			&models.CargoType{},
			&models.TransportType{},
			&models.VolumeUnit{},
			&models.Platform{},
			&models.PlatformAPIKey{},
			&models.Shipment{},
			&models.Bid{},
			&models.RejectedBidCacheEntry{},
			&models.BidEvent{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// --- Composite / natural-key indexes (idempotent, portable SQL) ---
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_rejected_bids_cache_fingerprint ON rejected_bids_cache (shipment_id, platform_id, price, estimated_delivery_time, currency_id, external_user_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_exact_offer ON bids (shipment_id, platform_id, price, estimated_delivery_time, currency_id, company_name, external_user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_bids_shipment_platform_status ON bids (shipment_id, platform_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_bids_submitter_created ON bids (shipment_id, platform_id, company_name, external_user_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_bids_platform_created ON bids (platform_id, created_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_caller_key ON idempotency_keys (caller_id, key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		// --- CHECK constraints (idempotent) ---
		checks := []struct{ table, name, expr string }{
			{"bids", "chk_bids_price_positive", "price > 0"},
			{"bids", "chk_bids_eta_positive", "estimated_delivery_time >= 1"},
			{"bids", "chk_bids_status", "status IN ('pending', 'accepted', 'rejected')"},
			{"shipments", "chk_shipments_status", "status IN ('active', 'completed', 'cancelled')"},
			{"shipments", "chk_shipments_cargo_volume_positive", "cargo_volume > 0"},
			// selected_bid_id is set iff completed; completed_at/cancelled_at follow the status
			{"shipments", "chk_shipments_selected_bid", "(status = 'completed') = (selected_bid_id IS NOT NULL)"},
			{"shipments", "chk_shipments_completed_at", "(status = 'completed') = (completed_at IS NOT NULL)"},
			{"shipments", "chk_shipments_cancelled_at", "(status = 'cancelled') = (cancelled_at IS NOT NULL)"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = '%[1]s'::regclass
					  AND conname  = '%[2]s'
				) THEN
					ALTER TABLE %[1]s
					ADD CONSTRAINT %[2]s
					CHECK (%[3]s);
				END IF;
			END $$;`, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}

		return nil
	})
}

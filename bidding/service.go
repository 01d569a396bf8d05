package bidding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cargo-bidding-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CurrencyResolver looks up an active currency by ISO code.
type CurrencyResolver interface {
	ResolveCurrency(ctx context.Context, code string) (*models.Currency, error)
}

// Service runs every bid and shipment transition inside its own database
// transaction and publishes the resulting events after commit.
type Service struct {
	db         *gorm.DB
	currencies CurrencyResolver
	notifier   Notifier
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, currencies CurrencyResolver, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		db:         db,
		currencies: currencies,
		notifier:   notifier,
		log:        slog.Default(),
		now:        time.Now,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) run(ctx context.Context, fn func(t *txn) error) error {
	t := &txn{now: s.now().UTC()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.db = tx
		return fn(t)
	})
	if err != nil {
		return err
	}
	for _, e := range t.events {
		s.notifier.Notify(e)
	}
	return nil
}

type SubmitBidInput struct {
	ShipmentID     string
	Submitter      Submitter
	Price          decimal.Decimal
	CurrencyCode   string
	ETA            int
	CompanyName    string
	ContactPerson  string
	ContactPhone   string
	ExternalUserID string
	Comment        string
}

// SubmitBid runs admission control and stores the bid as pending. The shipment
// row stays locked from the checks until the insert commits, so concurrent
// submissions on one shipment are admitted one at a time.
func (s *Service) SubmitBid(ctx context.Context, in SubmitBidInput) (*models.Bid, error) {
	currency, err := s.currencies.ResolveCurrency(ctx, in.CurrencyCode)
	if err != nil {
		return nil, err
	}

	var bid *models.Bid
	err = s.run(ctx, func(t *txn) error {
		sh, err := t.lockShipment(in.ShipmentID)
		if err != nil {
			return err
		}

		d, err := CanSubmitBid(t.db, Proposal{
			Shipment:       sh,
			Submitter:      in.Submitter,
			Price:          in.Price,
			ETA:            in.ETA,
			Currency:       currency,
			CompanyName:    in.CompanyName,
			ExternalUserID: in.ExternalUserID,
		})
		if err != nil {
			return err
		}
		if !d.Allowed {
			return d.Err()
		}

		b := &models.Bid{
			ShipmentID:            sh.ID,
			PlatformID:            in.Submitter.SubmitterID(),
			CompanyName:           in.CompanyName,
			Price:                 in.Price,
			CurrencyID:            currency.ID,
			EstimatedDeliveryTime: in.ETA,
			Comment:               in.Comment,
			ContactPerson:         in.ContactPerson,
			ContactPhone:          in.ContactPhone,
			ExternalUserID:        in.ExternalUserID,
			Status:                models.BidPending,
			CreatedAt:             t.now,
			UpdatedAt:             t.now,
		}
		if err := t.db.Omit(clause.Associations).Create(b).Error; err != nil {
			if isDuplicateKey(err) {
				return &AdmissionError{Reason: ReasonExactDuplicate}
			}
			return fmt.Errorf("create bid: %w", err)
		}
		b.Currency = currency
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bid submitted",
		slog.String("bid_id", bid.ID),
		slog.String("shipment_id", bid.ShipmentID),
		slog.String("platform_id", bid.PlatformID),
		slog.String("price", bid.Price.StringFixed(2)))
	return bid, nil
}

// AcceptBid completes the shipment with bidID as the selected bid.
func (s *Service) AcceptBid(ctx context.Context, shipmentID, bidID string) (*models.Shipment, error) {
	var sh *models.Shipment
	err := s.run(ctx, func(t *txn) error {
		var err error
		if sh, err = t.lockShipment(shipmentID); err != nil {
			return err
		}
		bid, err := t.loadBid(bidID)
		if err != nil {
			return err
		}
		return t.markCompleted(sh, bid)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("shipment completed", slog.String("shipment_id", sh.ID), slog.String("bid_id", bidID))
	return sh, nil
}

// RejectBid rejects one pending bid of an active shipment.
func (s *Service) RejectBid(ctx context.Context, shipmentID, bidID string) (*models.Bid, error) {
	var bid *models.Bid
	err := s.run(ctx, func(t *txn) error {
		sh, err := t.lockShipment(shipmentID)
		if err != nil {
			return err
		}
		if bid, err = t.loadBid(bidID); err != nil {
			return err
		}
		return t.rejectOne(sh, bid)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("bid rejected", slog.String("shipment_id", shipmentID), slog.String("bid_id", bidID))
	return bid, nil
}

// CancelShipment closes an active shipment without a winner.
func (s *Service) CancelShipment(ctx context.Context, shipmentID string) (*models.Shipment, error) {
	var sh *models.Shipment
	err := s.run(ctx, func(t *txn) error {
		var err error
		if sh, err = t.lockShipment(shipmentID); err != nil {
			return err
		}
		return t.markCancelled(sh)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("shipment cancelled", slog.String("shipment_id", sh.ID))
	return sh, nil
}

// RejectAllPendingBids rejects every pending bid and leaves the shipment
// status as it is. It returns how many bids were rejected.
func (s *Service) RejectAllPendingBids(ctx context.Context, shipmentID string) (int, error) {
	var n int
	err := s.run(ctx, func(t *txn) error {
		sh, err := t.lockShipment(shipmentID)
		if err != nil {
			return err
		}
		n, err = t.rejectAllPending(sh)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("pending bids rejected", slog.String("shipment_id", shipmentID), slog.Int("count", n))
	}
	return n, nil
}

package bidding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cargo-bidding-backend/database/dbtest"
	"cargo-bidding-backend/metadata"
	"cargo-bidding-backend/models"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stepClock advances one second on every call so created_at orders are stable.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(typ EventType) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	events   *recorder
	owner    *models.User
	platform *models.Platform
	gel      *models.Currency
	usd      *models.Currency
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)

	resolver, err := metadata.NewResolver(db, 8)
	assert.NoError(t, err)

	f := &fixture{db: db, events: &recorder{}}
	clock := &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(db, resolver, f.events, WithClock(clock.Now))

	ctx := context.Background()
	f.gel, err = resolver.ResolveCurrency(ctx, "GEL")
	assert.NoError(t, err)
	f.usd, err = resolver.ResolveCurrency(ctx, "USD")
	assert.NoError(t, err)

	f.owner = &models.User{FirstName: "Nino", LastName: "Beridze", Email: uuid.NewString() + "@example.com", Password: []byte("x")}
	assert.NoError(t, db.Create(f.owner).Error)
	f.platform = f.newPlatform(t, "Cargo Hub")
	return f
}

func (f *fixture) newPlatform(t *testing.T, name string) *models.Platform {
	t.Helper()
	p := &models.Platform{CompanyName: name, ContactEmail: "ops@example.com", ContactPhone: "+995555000000", IsActive: true}
	assert.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) newShipment(t *testing.T, currency *models.Currency) *models.Shipment {
	t.Helper()
	var (
		cargo     models.CargoType
		unit      models.VolumeUnit
		transport models.TransportType
	)
	assert.NoError(t, f.db.Order("sort_order").Take(&cargo).Error)
	assert.NoError(t, f.db.Order("sort_order").Take(&unit).Error)
	assert.NoError(t, f.db.Order("sort_order").Take(&transport).Error)

	sh := &models.Shipment{
		UserID:              f.owner.ID,
		PickupLocation:      "Tbilisi",
		PickupDate:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		DeliveryLocation:    "Batumi",
		CargoTypeID:         cargo.ID,
		CargoVolume:         decimal.RequireFromString("12.5"),
		VolumeUnitID:        unit.ID,
		TransportTypeID:     transport.ID,
		PreferredCurrencyID: currency.ID,
		Status:              models.ShipmentActive,
	}
	assert.NoError(t, f.db.Create(sh).Error)
	return sh
}

// bid builds a valid submission for sh from the fixture platform.
func (f *fixture) bid(sh *models.Shipment, price string, eta int) SubmitBidInput {
	return SubmitBidInput{
		ShipmentID:    sh.ID,
		Submitter:     f.platform,
		Price:         decimal.RequireFromString(price),
		CurrencyCode:  "GEL",
		ETA:           eta,
		CompanyName:   "Fast Trucks LLC",
		ContactPerson: "Giorgi",
		ContactPhone:  "+995555123456",
	}
}

func (f *fixture) submit(t *testing.T, in SubmitBidInput) *models.Bid {
	t.Helper()
	b, err := f.svc.SubmitBid(context.Background(), in)
	assert.NoError(t, err)
	return b
}

func (f *fixture) reload(t *testing.T, dst any, id string) {
	t.Helper()
	assert.NoError(t, f.db.Take(dst, "id = ?", id).Error)
}

func (f *fixture) cacheEntries(t *testing.T, shipmentID string) []models.RejectedBidCacheEntry {
	t.Helper()
	var rows []models.RejectedBidCacheEntry
	assert.NoError(t, f.db.Where("shipment_id = ?", shipmentID).Find(&rows).Error)
	return rows
}

func reasonOf(err error) Reason {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ReasonNone
}

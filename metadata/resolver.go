package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cargo-bidding-backend/models"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"
)

var ErrCurrencyNotFound = errors.New("currency not found")

// Resolver reads reference data. Currencies are cached by code; the cache
// holds copies, so callers may modify what they get back.
type Resolver struct {
	db         *gorm.DB
	currencies *lru.Cache
}

func NewResolver(db *gorm.DB, cacheSize int) (*Resolver, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("currency cache: %w", err)
	}
	return &Resolver{db: db, currencies: cache}, nil
}

// ResolveCurrency returns the active currency with the given ISO code.
func (r *Resolver) ResolveCurrency(ctx context.Context, code string) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCurrencyNotFound
	}
	if v, ok := r.currencies.Get(code); ok {
		c := v.(models.Currency)
		return &c, nil
	}

	var c models.Currency
	err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCurrencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup currency %s: %w", code, err)
	}
	r.currencies.Add(code, c)
	return &c, nil
}

// Forget drops cached currencies, e.g. after an admin deactivates one.
func (r *Resolver) Forget() {
	r.currencies.Purge()
}

type Catalog struct {
	CargoTypes     []models.CargoType     `json:"cargo_types"`
	TransportTypes []models.TransportType `json:"transport_types"`
	VolumeUnits    []models.VolumeUnit    `json:"volume_units"`
	Currencies     []models.Currency      `json:"currencies"`
}

// Catalog lists all active reference data in display order.
func (r *Resolver) Catalog(ctx context.Context) (*Catalog, error) {
	db := r.db.WithContext(ctx)
	active := func(dst any) error {
		return db.Where("is_active = ?", true).Order("sort_order, name").Find(dst).Error
	}

	var cat Catalog
	if err := active(&cat.CargoTypes); err != nil {
		return nil, fmt.Errorf("list cargo types: %w", err)
	}
	if err := active(&cat.TransportTypes); err != nil {
		return nil, fmt.Errorf("list transport types: %w", err)
	}
	if err := active(&cat.VolumeUnits); err != nil {
		return nil, fmt.Errorf("list volume units: %w", err)
	}
	if err := active(&cat.Currencies); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return &cat, nil
}

// Exists reports whether an active row with id exists in the table of model.
func (r *Resolver) Exists(ctx context.Context, model any, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(model).Where("id = ? AND is_active = ?", id, true).Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package database

import (
	"errors"
	"fmt"
	"strings"

	"cargo-bidding-backend/models"

	"gorm.io/gorm"
)

var (
	seedCurrencies = []models.Currency{
		{Metadata: models.Metadata{Name: "Georgian Lari", SortOrder: 1}, Code: "GEL", Symbol: "₾"},
		{Metadata: models.Metadata{Name: "US Dollar", SortOrder: 2}, Code: "USD", Symbol: "$"},
		{Metadata: models.Metadata{Name: "Euro", SortOrder: 3}, Code: "EUR", Symbol: "€"},
	}
	seedCargoTypes      = []string{"Food products", "Construction materials", "Furniture", "Electronics", "Clothing and textiles", "Chemicals", "Other"}
	seedTransportTypes  = []string{"Tent", "Refrigerator", "Container", "Flatbed", "Tanker"}
	seedVolumeUnitsAbbr = [][2]string{{"Kilogram", "kg"}, {"Ton", "t"}, {"Cubic meter", "m³"}, {"Pallet", "plt"}}
)

// SeedMetadata inserts the reference data a fresh installation needs. Existing
// rows are left untouched.
func SeedMetadata(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, c := range seedCurrencies {
			c.IsActive = true
			if err := tx.Where(models.Currency{Code: c.Code}).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("seed currency %s: %w", c.Code, err)
			}
		}
		for i, name := range seedCargoTypes {
			row := models.CargoType{Metadata: models.Metadata{Name: name, SortOrder: i + 1, IsActive: true}}
			if err := tx.Where("name = ?", name).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed cargo type %s: %w", name, err)
			}
		}
		for i, name := range seedTransportTypes {
			row := models.TransportType{Metadata: models.Metadata{Name: name, SortOrder: i + 1, IsActive: true}}
			if err := tx.Where("name = ?", name).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed transport type %s: %w", name, err)
			}
		}
		for i, u := range seedVolumeUnitsAbbr {
			row := models.VolumeUnit{Metadata: models.Metadata{Name: u[0], SortOrder: i + 1, IsActive: true}, Abbreviation: u[1]}
			if err := tx.Where("name = ?", u[0]).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed volume unit %s: %w", u[0], err)
			}
		}
		return nil
	})
}

type PlatformInput struct {
	CompanyName   string
	ContactEmail  string
	ContactPhone  string
	ContactPerson string
	WebhookURL    string
}

// CreatePlatform registers a platform with one active API key and returns the
// raw key. The raw key is not stored and cannot be recovered later.
func CreatePlatform(db *gorm.DB, in PlatformInput) (*models.Platform, string, error) {
	if strings.TrimSpace(in.CompanyName) == "" || strings.TrimSpace(in.ContactEmail) == "" {
		return nil, "", errors.New("company name and contact email are required")
	}

	raw, err := models.GeneratePlatformKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}

	platform := models.Platform{
		CompanyName:   strings.TrimSpace(in.CompanyName),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		WebhookURL:    strings.TrimSpace(in.WebhookURL),
		IsActive:      true,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&platform).Error; err != nil {
			return err
		}
		key := models.PlatformAPIKey{PlatformID: platform.ID, IsActive: true}
		key.SetKey(raw)
		return tx.Create(&key).Error
	})
	if err != nil {
		return nil, "", fmt.Errorf("create platform: %w", err)
	}
	return &platform, raw, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata holds the columns shared by every reference table.
type Metadata struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	IsActive  bool      `json:"-" gorm:"not null"`
	SortOrder int       `json:"sort_order" gorm:"not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (m *Metadata) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return
}

type Currency struct {
	Metadata
	Code   string `json:"code" gorm:"size:3;uniqueIndex;not null"` // ISO 4217
	Symbol string `json:"symbol" gorm:"size:5"`
}

type CargoType struct {
	Metadata
}

type TransportType struct {
	Metadata
}

type VolumeUnit struct {
	Metadata
	Abbreviation string `json:"abbreviation" gorm:"size:10"`
}

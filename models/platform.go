package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const platformKeyPrefix = "pk_"

// Platform is an external logistics company submitting bids through the API.
type Platform struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyName   string    `json:"company_name" gorm:"size:200;not null"`
	ContactEmail  string    `json:"contact_email" gorm:"not null"`
	ContactPhone  string    `json:"contact_phone" gorm:"size:20;not null"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	WebhookURL    string    `json:"-" gorm:"size:500"`
	IsActive      bool      `json:"-" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

func (p *Platform) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return
}

// SubmitterID identifies the platform in bid fingerprints.
func (p *Platform) SubmitterID() string {
	return p.ID
}

// PlatformAPIKey authenticates a platform. Only the sha256 of the key is kept.
type PlatformAPIKey struct {
	ID         string     `json:"id" gorm:"primaryKey;size:36"`
	PlatformID string     `json:"platform_id" gorm:"size:36;not null;index"`
	Platform   *Platform  `json:"-" gorm:"foreignKey:PlatformID;constraint:OnDelete:CASCADE"`
	KeyHash    string     `json:"-" gorm:"size:64;uniqueIndex;not null"`
	Prefix     string     `json:"prefix" gorm:"size:12"` // shown to admins to tell keys apart
	IsActive   bool       `json:"is_active" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func (k *PlatformAPIKey) BeforeCreate(tx *gorm.DB) (err error) {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return
}

// GeneratePlatformKey returns a new random raw API key.
func GeneratePlatformKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return platformKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashPlatformKey is the lookup hash stored for a raw key.
func HashPlatformKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SetKey stores the hash and display prefix of raw.
func (k *PlatformAPIKey) SetKey(raw string) {
	k.KeyHash = HashPlatformKey(raw)
	k.Prefix = raw
	if len(k.Prefix) > 10 {
		k.Prefix = k.Prefix[:10]
	}
}

package middlewares

import (
	"errors"
	"log/slog"
	"time"

	"cargo-bidding-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PlatformAuth authenticates a platform by its Bearer API key and sets
// c.Locals("platform").
func PlatformAuth(db *gorm.DB, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing API key")
		}

		var key models.PlatformAPIKey
		err := db.WithContext(c.UserContext()).
			Preload("Platform").
			Where("key_hash = ? AND is_active = ?", models.HashPlatformKey(raw), true).
			Take(&key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid API key")
		}
		if err != nil {
			return err
		}
		if key.Platform == nil || !key.Platform.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "platform is deactivated")
		}

		now := time.Now().UTC()
		if err := db.Model(&models.PlatformAPIKey{}).Where("id = ?", key.ID).Update("last_used_at", now).Error; err != nil {
			log.Warn("touch api key", slog.String("key_id", key.ID), slog.Any("error", err))
		}

		c.Locals("platform", key.Platform)
		return c.Next()
	}
}

// CurrentPlatform returns the platform set by PlatformAuth.
func CurrentPlatform(c *fiber.Ctx) *models.Platform {
	p, _ := c.Locals("platform").(*models.Platform)
	return p
}

// CallerID is the authenticated owner or platform id, "" when anonymous.
func CallerID(c *fiber.Ctx) string {
	if p := CurrentPlatform(c); p != nil {
		return p.ID
	}
	return UserID(c)
}

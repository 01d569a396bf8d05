package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cargo-bidding-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	maxIdempotencyKeyLen = 128

	// IdempotencyLease is how long an unfinished key blocks retries. After
	// that the request holding it is presumed dead and the key is taken over.
	IdempotencyLease = 2 * time.Minute
)

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response for a (caller, key) pair is stored and replayed for
// retries of the same request. Run it after authentication.
func Idempotency(db *gorm.DB, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return NewAPIError(fiber.StatusBadRequest, "VALIDATION_ERROR", "Idempotency-Key too long")
		}

		caller := CallerID(c)
		if caller == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
		}

		path := c.OriginalURL()
		reqHash := requestHash(method, path, c.Body(), caller)
		now := time.Now().UTC()

		var (
			existing models.IdempotencyKey
			created  bool
		)
		err := db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("caller_id = ? AND key = ?", caller, key).Take(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			existing = models.IdempotencyKey{
				Key:         key,
				CallerID:    caller,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
				CreatedAt:   now,
			}
			if err := tx.Create(&existing).Error; err != nil {
				return err
			}
			created = true
			return nil
		})
		if err != nil {
			created = false
			existing = models.IdempotencyKey{}
			// lost a create race: the winner's row is there now
			if e := db.Where("caller_id = ? AND key = ?", caller, key).Take(&existing).Error; e != nil {
				return err
			}
		}

		if !created && existing.ResponseStatus == 0 {
			took, err := takeOverStale(db, &existing, reqHash, now)
			if err != nil {
				return err
			}
			created = took
		}

		if existing.RequestHash != reqHash {
			return NewAPIError(fiber.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}
		if !created {
			return NewAPIError(fiber.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this Idempotency-Key is still being processed")
		}

		// Errors are rendered later by the error handler, so only direct
		// responses below 500 are stored. Anything else frees the key.
		release := func() {
			if err := db.Where("id = ?", existing.ID).Delete(&models.IdempotencyKey{}).Error; err != nil {
				log.Warn("drop idempotency key", slog.String("key", key), slog.Any("error", err))
			}
		}
		if err := c.Next(); err != nil {
			release()
			return err
		}
		status := c.Response().StatusCode()
		if status >= 500 {
			release()
			return nil
		}

		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		done := time.Now().UTC()
		err = db.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   blob,
				"completed_at":    &done,
			}).Error
		if err != nil {
			log.Warn("store idempotent response", slog.String("key", key), slog.Any("error", err))
		}
		return nil
	}
}

// takeOverStale claims an unfinished key whose lease ran out. The conditional
// update lets only one retry win it.
func takeOverStale(db *gorm.DB, rec *models.IdempotencyKey, reqHash string, now time.Time) (bool, error) {
	cutoff := now.Add(-IdempotencyLease)
	if !rec.CreatedAt.Before(cutoff) {
		return false, nil
	}
	res := db.Model(&models.IdempotencyKey{}).
		Where("id = ? AND response_status = ? AND created_at < ?", rec.ID, 0, cutoff).
		Updates(map[string]any{"request_hash": reqHash, "created_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.RequestHash = reqHash
	rec.CreatedAt = now
	return true, nil
}

func requestHash(method, path string, body []byte, caller string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(caller))
	return hex.EncodeToString(h.Sum(nil))
}

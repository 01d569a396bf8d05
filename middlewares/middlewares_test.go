package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/database"
	"cargo-bidding-backend/database/dbtest"
	"cargo-bidding-backend/metadata"
	"cargo-bidding-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discard)})
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return resp, body
}

func TestErrorHandler(t *testing.T) {
	type input struct {
		Price string `validate:"required"`
	}
	invalid := ValidateStruct(input{})

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "admission", err: &bidding.AdmissionError{Reason: bidding.ReasonPriceDuplicate}, status: 409, code: "BID_PRICE_DUPLICATE"},
		{name: "transition", err: bidding.ErrShipmentNotActive, status: 409, code: "SHIPMENT_NOT_ACTIVE"},
		{name: "wrapped transition", err: fmt.Errorf("accept: %w", bidding.ErrInvalidTransition), status: 409, code: "INVALID_STATE"},
		{name: "shipment not found", err: bidding.ErrShipmentNotFound, status: 404, code: "SHIPMENT_NOT_FOUND"},
		{name: "bid not found", err: bidding.ErrBidNotFound, status: 404, code: "BID_NOT_FOUND"},
		{name: "currency", err: metadata.ErrCurrencyNotFound, status: 400, code: "CURRENCY_NOT_FOUND"},
		{name: "validation", err: invalid, status: 400, code: "VALIDATION_ERROR"},
		{name: "api error", err: NewAPIError(409, "EMAIL_TAKEN", "email already exists"), status: 409, code: "EMAIL_TAKEN"},
		{name: "fiber error", err: fiber.ErrUnauthorized, status: 401, code: "UNAUTHORIZED"},
		{name: "unknown", err: errors.New("db is on fire"), status: 500, code: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp()
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, raw := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			check.Equal(t, tt.status, resp.StatusCode)

			var body errorBody
			assert.NoError(t, json.Unmarshal(raw, &body))
			check.False(t, body.Success)
			check.Equal(t, tt.code, body.Error.Code)
			if tt.status == 500 {
				check.Equal(t, "internal server error", body.Error.Message)
			}
		})
	}
}

func TestJWT(t *testing.T) {
	j := NewJWT("test-secret", time.Hour)
	app := newApp()
	app.Get("/me", j.Authenticate(), func(c *fiber.Ctx) error { return c.SendString(UserID(c)) })

	token, err := j.Generate("user-1")
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := do(t, app, req)
	check.Equal(t, 200, resp.StatusCode)
	check.Equal(t, "user-1", string(body))

	expired := NewJWT("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate("user-1")
	assert.NoError(t, err)
	forged, err := NewJWT("other-secret", time.Hour).Generate("user-1")
	assert.NoError(t, err)

	for name, header := range map[string]string{
		"missing": "",
		"basic":   "Basic abc",
		"expired": "Bearer " + old,
		"forged":  "Bearer " + forged,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, _ := do(t, app, req)
			check.Equal(t, 401, resp.StatusCode)
		})
	}
}

func TestPlatformAuth(t *testing.T) {
	db := dbtest.New(t)
	platform, key, err := database.CreatePlatform(db, database.PlatformInput{CompanyName: "Cargo Hub", ContactEmail: "ops@example.com"})
	assert.NoError(t, err)
	check.True(t, strings.HasPrefix(key, "pk_"))

	app := newApp()
	app.Get("/whoami", PlatformAuth(db, discard), func(c *fiber.Ctx) error { return c.SendString(CurrentPlatform(c).ID) })

	call := func(header string) (*http.Response, []byte) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return do(t, app, req)
	}

	resp, body := call("Bearer " + key)
	check.Equal(t, 200, resp.StatusCode)
	check.Equal(t, platform.ID, string(body))

	var stored models.PlatformAPIKey
	assert.NoError(t, db.Where("platform_id = ?", platform.ID).Take(&stored).Error)
	check.NotNil(t, stored.LastUsedAt)
	check.Equal(t, models.HashPlatformKey(key), stored.KeyHash)

	resp, _ = call("")
	check.Equal(t, 401, resp.StatusCode)
	resp, _ = call("Bearer pk_wrong")
	check.Equal(t, 401, resp.StatusCode)

	assert.NoError(t, db.Model(&models.Platform{}).Where("id = ?", platform.ID).Update("is_active", false).Error)
	resp, _ = call("Bearer " + key)
	check.Equal(t, 403, resp.StatusCode)
}

func TestIdempotency(t *testing.T) {
	db := dbtest.New(t)

	var calls atomic.Int32
	asUser := func(c *fiber.Ctx) error {
		c.Locals("userID", "user-1")
		return c.Next()
	}
	app := newApp()
	app.Post("/things", asUser, Idempotency(db, discard),
		func(c *fiber.Ctx) error {
			n := calls.Add(1)
			return c.Status(201).JSON(fiber.Map{"n": n})
		})
	app.Post("/fails", asUser, Idempotency(db, discard), func(c *fiber.Ctx) error {
		return bidding.ErrShipmentNotActive
	})

	post := func(path, key, body string) (*http.Response, []byte) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		return do(t, app, req)
	}

	resp, first := post("/things", "k1", `{"a":1}`)
	check.Equal(t, 201, resp.StatusCode)

	resp, replay := post("/things", "k1", `{"a":1}`)
	check.Equal(t, 201, resp.StatusCode)
	check.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	check.Equal(t, string(first), string(replay))
	check.Equal(t, int32(1), calls.Load())

	resp, _ = post("/things", "k1", `{"a":2}`)
	check.Equal(t, 422, resp.StatusCode)

	resp, _ = post("/things", "", `{"a":1}`)
	check.Equal(t, 201, resp.StatusCode)
	check.Equal(t, int32(2), calls.Load())

	// failed requests free their key
	resp, _ = post("/fails", "k2", `{}`)
	check.Equal(t, 409, resp.StatusCode)
	var n int64
	assert.NoError(t, db.Model(&models.IdempotencyKey{}).Where("key = ?", "k2").Count(&n).Error)
	check.Equal(t, int64(0), n)
}

func TestIdempotency_Lease(t *testing.T) {
	db := dbtest.New(t)

	var calls atomic.Int32
	app := newApp()
	app.Post("/things", func(c *fiber.Ctx) error {
		c.Locals("userID", "user-1")
		return c.Next()
	}, Idempotency(db, discard), func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.SendStatus(201)
	})

	post := func(key string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{"a":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		resp, _ := do(t, app, req)
		return resp
	}
	unfinished := func(key string, age time.Duration) {
		rec := models.IdempotencyKey{
			Key:         key,
			CallerID:    "user-1",
			RequestHash: requestHash(http.MethodPost, "/things", []byte(`{"a":1}`), "user-1"),
			Method:      http.MethodPost,
			Path:        "/things",
			CreatedAt:   time.Now().UTC().Add(-age),
		}
		assert.NoError(t, db.Create(&rec).Error)
	}

	unfinished("fresh", time.Second)
	resp := post("fresh")
	check.Equal(t, 409, resp.StatusCode)
	check.Equal(t, int32(0), calls.Load())

	unfinished("stale", IdempotencyLease+time.Minute)
	resp = post("stale")
	check.Equal(t, 201, resp.StatusCode)
	check.Equal(t, int32(1), calls.Load())

	var rec models.IdempotencyKey
	assert.NoError(t, db.Where("key = ?", "stale").Take(&rec).Error)
	check.Equal(t, 201, rec.ResponseStatus)
	check.NotNil(t, rec.CompletedAt)

	resp = post("stale")
	check.Equal(t, 201, resp.StatusCode)
	check.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	check.Equal(t, int32(1), calls.Load())
}

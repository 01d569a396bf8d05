package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/config"
	"cargo-bidding-backend/database/dbtest"
	"cargo-bidding-backend/models"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"gorm.io/gorm"
)

type hook struct {
	mu       sync.Mutex
	status   int
	bodies   []map[string]any
	headers  []string
	requests int
}

func (h *hook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	h.mu.Lock()
	h.requests++
	h.bodies = append(h.bodies, body)
	h.headers = append(h.headers, r.Header.Get(eventHeader))
	status := h.status
	h.mu.Unlock()

	w.WriteHeader(status)
}

func newPlatform(t *testing.T, db *gorm.DB, webhook string, active bool) *models.Platform {
	t.Helper()
	p := &models.Platform{CompanyName: "Cargo Hub", ContactEmail: "ops@example.com", ContactPhone: "1", WebhookURL: webhook, IsActive: true}
	assert.NoError(t, db.Create(p).Error)
	if !active {
		assert.NoError(t, db.Model(p).Update("is_active", false).Error)
	}
	return p
}

func event(platformID string, typ bidding.EventType) bidding.Event {
	return bidding.Event{
		Type:       typ,
		BidID:      "bid-1",
		ShipmentID: "shipment-1",
		PlatformID: platformID,
		Payload:    map[string]any{"event": string(typ), "bid": map[string]any{"id": "bid-1", "price": "250.00"}},
	}
}

func testConfig() config.WebhookConfig {
	return config.WebhookConfig{Workers: 2, QueueSize: 16, TimeoutSeconds: 2}
}

func deliveries(t *testing.T, db *gorm.DB) []models.BidEvent {
	t.Helper()
	var rows []models.BidEvent
	assert.NoError(t, db.Order("id").Find(&rows).Error)
	return rows
}

func TestDispatcher_Delivers(t *testing.T) {
	db := dbtest.New(t)
	h := &hook{status: http.StatusOK}
	srv := httptest.NewServer(h)
	defer srv.Close()

	p := newPlatform(t, db, srv.URL, true)

	d := NewDispatcher(db, testConfig(), nil)
	d.Start(context.Background())
	d.Notify(event(p.ID, bidding.EventBidAccepted))
	d.Close()

	h.mu.Lock()
	check.Equal(t, 1, h.requests)
	check.Equal(t, "bid_accepted", h.headers[0])
	check.True(t, h.bodies[0]["event"] == "bid_accepted")
	h.mu.Unlock()

	rows := deliveries(t, db)
	assert.Equal(t, 1, len(rows))
	check.Equal(t, http.StatusOK, rows[0].StatusCode)
	check.Equal(t, "", rows[0].Error)
	check.Equal(t, srv.URL, rows[0].URL)
	check.Equal(t, "bid-1", rows[0].BidID)

	var stored map[string]any
	assert.NoError(t, json.Unmarshal(rows[0].Payload, &stored))
	check.True(t, stored["event"] == "bid_accepted")
}

func TestDispatcher_RecordsFailure(t *testing.T) {
	db := dbtest.New(t)
	h := &hook{status: http.StatusBadGateway}
	srv := httptest.NewServer(h)
	defer srv.Close()

	p := newPlatform(t, db, srv.URL, true)

	d := NewDispatcher(db, testConfig(), nil)
	d.Start(context.Background())
	d.Notify(event(p.ID, bidding.EventBidRejected))
	d.Close()

	rows := deliveries(t, db)
	assert.Equal(t, 1, len(rows))
	check.Equal(t, http.StatusBadGateway, rows[0].StatusCode)
	check.NotEqual(t, "", rows[0].Error)
	check.Equal(t, string(bidding.EventBidRejected), rows[0].Type)
}

func TestDispatcher_SkipsWithoutWebhook(t *testing.T) {
	db := dbtest.New(t)
	h := &hook{status: http.StatusOK}
	srv := httptest.NewServer(h)
	defer srv.Close()

	silent := newPlatform(t, db, "", true)
	inactive := newPlatform(t, db, srv.URL, false)

	d := NewDispatcher(db, testConfig(), nil)
	d.Start(context.Background())
	d.Notify(event(silent.ID, bidding.EventBidAccepted))
	d.Notify(event(inactive.ID, bidding.EventBidAccepted))
	d.Notify(event("unknown", bidding.EventBidAccepted))
	d.Close()

	check.Equal(t, 0, len(deliveries(t, db)))
	h.mu.Lock()
	check.Equal(t, 0, h.requests)
	h.mu.Unlock()
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	db := dbtest.New(t)
	cfg := testConfig()
	cfg.QueueSize = 1

	// no workers yet: the second event has nowhere to go
	d := NewDispatcher(db, cfg, nil)
	d.Notify(event("p", bidding.EventBidAccepted))
	d.Notify(event("p", bidding.EventBidAccepted))
	check.Equal(t, 1, len(d.queue))

	d.Close()
	d.Notify(event("p", bidding.EventBidAccepted))
	d.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/config"
	"cargo-bidding-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const eventHeader = "X-Bid-Event"

// Dispatcher delivers bid events to platform webhooks from a pool of
// workers. Notify never blocks; events that do not fit in the queue are
// dropped and logged.
type Dispatcher struct {
	db      *gorm.DB
	queue   chan bidding.Event
	workers int
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(db *gorm.DB, cfg config.WebhookConfig, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		db:      db,
		queue:   make(chan bidding.Event, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout(),
		log:     log.With(slog.String("component", "notify")),
	}
}

// Start launches the workers. They exit when ctx is done or after Close has
// drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-d.queue:
					if !ok {
						return
					}
					d.deliver(ev)
				}
			}
		}()
	}
}

func (d *Dispatcher) Notify(ev bidding.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("notification queue full, event dropped",
			slog.String("event", string(ev.Type)),
			slog.String("bid_id", ev.BidID))
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ev bidding.Event) {
	var platform models.Platform
	err := d.db.Where("id = ? AND is_active = ?", ev.PlatformID, true).Take(&platform).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		d.log.Error("load platform for notification", slog.String("platform_id", ev.PlatformID), slog.Any("error", err))
		return
	}
	url := strings.TrimSpace(platform.WebhookURL)
	if url == "" {
		return
	}

	body, err := json.Marshal(ev.Payload)
	if err != nil {
		d.log.Error("encode notification", slog.String("bid_id", ev.BidID), slog.Any("error", err))
		return
	}

	record := models.BidEvent{
		Type:       string(ev.Type),
		BidID:      ev.BidID,
		ShipmentID: ev.ShipmentID,
		PlatformID: ev.PlatformID,
		URL:        url,
		Payload:    datatypes.JSON(body),
	}
	code, err := d.post(url, string(ev.Type), body)
	record.StatusCode = code
	if err != nil {
		record.Error = err.Error()
		d.log.Warn("webhook delivery failed",
			slog.String("url", url),
			slog.String("bid_id", ev.BidID),
			slog.Int("status", code),
			slog.Any("error", err))
	} else {
		d.log.Debug("webhook delivered", slog.String("url", url), slog.String("bid_id", ev.BidID))
	}

	if err := d.db.Create(&record).Error; err != nil {
		d.log.Error("record bid event", slog.String("bid_id", ev.BidID), slog.Any("error", err))
	}
}

func (d *Dispatcher) post(url, event string, body []byte) (int, error) {
	agent := fiber.Post(url).
		Timeout(d.timeout).
		Set(eventHeader, event).
		ContentType(fiber.MIMEApplicationJSON).
		Body(body)

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return code, errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		return code, fmt.Errorf("webhook responded with status %d", code)
	}
	return code, nil
}

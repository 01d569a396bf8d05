package bidding

import (
	"time"

	"cargo-bidding-backend/models"
)

type EventType string

const (
	EventBidAccepted EventType = "bid_accepted"
	EventBidRejected EventType = "bid_rejected"
)

// Event announces that a bid reached a terminal status.
type Event struct {
	Type       EventType
	BidID      string
	ShipmentID string
	PlatformID string
	OccurredAt time.Time
	Payload    map[string]any
}

// Notifier hands events to out-of-band delivery. Notify must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func newBidEvent(typ EventType, sh *models.Shipment, bid *models.Bid, at time.Time) Event {
	bidInfo := map[string]any{
		"id":                      bid.ID,
		"status":                  string(bid.Status),
		"company_name":            bid.CompanyName,
		"price":                   bid.Price.StringFixed(2),
		"estimated_delivery_time": bid.EstimatedDeliveryTime,
		"contact_person":          bid.ContactPerson,
		"contact_phone":           bid.ContactPhone,
		"external_user_id":        bid.ExternalUserID,
	}
	if bid.Currency != nil {
		bidInfo["currency"] = bid.Currency.Code
	}

	platformInfo := map[string]any{"id": bid.PlatformID}
	if bid.Platform != nil {
		platformInfo["company_name"] = bid.Platform.CompanyName
	}

	return Event{
		Type:       typ,
		BidID:      bid.ID,
		ShipmentID: sh.ID,
		PlatformID: bid.PlatformID,
		OccurredAt: at,
		Payload: map[string]any{
			"event": string(typ),
			"bid":   bidInfo,
			"shipment": map[string]any{
				"id":                sh.ID,
				"pickup_location":   sh.PickupLocation,
				"delivery_location": sh.DeliveryLocation,
				"pickup_date":       sh.PickupDate.Format(time.RFC3339),
				"status":            string(sh.Status),
			},
			"platform": platformInfo,
		},
	}
}

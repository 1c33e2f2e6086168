// Package notify pushes real-time events to users over their live connections.
package notify

import (
	"time"

	"service-dispatch/internal/domain"
)

// Event types.
const (
	TypeDeliveryAssigned      = "delivery_assigned"
	TypeNotificationCancelled = "notification_cancelled"
	TypeLocationUpdate        = "location_update"
	TypeDeliveryCompleted     = "delivery_completed"
)

// Cancellation reasons.
const (
	ReasonAcceptedByOther = "accepted_by_other"
	ReasonCancelled       = "cancelled"
)

// Event is a payload the notifier stamps with a type and an event id before sending.
type Event interface {
	EventType() string
	stamp(Header)
}

// Header is embedded by every event.
type Header struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

func (h *Header) stamp(v Header) { *h = v }

// Place is a coordinate with an optional street address.
type Place struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// PlaceOf converts c, with an optional address.
func PlaceOf(c domain.Coordinate, address string) Place {
	return Place{Lat: c.Lat, Lng: c.Lng, Address: address}
}

// DeliveryAssigned offers an order to a courier.
type DeliveryAssigned struct {
	Header
	OrderID             string    `json:"orderId"`
	VendorLocation      Place     `json:"vendorLocation"`
	DeliveryAddress     Place     `json:"deliveryAddress"`
	EstimatedDistanceKm float64   `json:"estimatedDistanceKm"`
	PaymentAmount       float64   `json:"paymentAmount"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

func (DeliveryAssigned) EventType() string { return TypeDeliveryAssigned }

// NotificationCancelled withdraws an earlier offer.
type NotificationCancelled struct {
	Header
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

func (NotificationCancelled) EventType() string { return TypeNotificationCancelled }

// LocationUpdate streams the courier position to the customer.
type LocationUpdate struct {
	Header
	DeliveryID string    `json:"deliveryId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ETA        int       `json:"eta"`
	Timestamp  time.Time `json:"timestamp"`
}

func (LocationUpdate) EventType() string { return TypeLocationUpdate }

// DeliveryCompleted tells the customer the order was handed over.
type DeliveryCompleted struct {
	Header
	DeliveryID  string    `json:"deliveryId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (DeliveryCompleted) EventType() string { return TypeDeliveryCompleted }

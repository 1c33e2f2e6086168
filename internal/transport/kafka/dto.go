package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/orders"
)

// EventDTO is a data transfer object for orders.Event
type EventDTO struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	RadiusKm  float64   `json:"radius_km,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDomain converts EventDTO to orders.Event
func ToDomain(dto EventDTO) orders.Event {
	return orders.Event{
		OrderID:   strings.TrimSpace(dto.OrderID),
		Status:    strings.TrimSpace(dto.Status),
		RadiusKm:  dto.RadiusKm,
		CreatedAt: dto.CreatedAt,
	}
}

// AvailabilityDTO is the courier availability signal.
type AvailabilityDTO struct {
	CourierID int64    `json:"courier_id"`
	Status    string   `json:"status"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// ToAvailability converts AvailabilityDTO to orders.AvailabilityEvent.
// A coordinate is kept only when both halves are present.
func ToAvailability(dto AvailabilityDTO) orders.AvailabilityEvent {
	ev := orders.AvailabilityEvent{
		CourierID: dto.CourierID,
		Status:    domain.CourierStatus(strings.ToUpper(strings.TrimSpace(dto.Status))),
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		ev.Location = &domain.Coordinate{Lat: *dto.Latitude, Lng: *dto.Longitude}
	}
	return ev
}

// OrderHandler decodes order events for h.
func OrderHandler(h func(context.Context, orders.Event) error) Handler {
	return func(ctx context.Context, value []byte) error {
		var dto EventDTO
		if err := json.Unmarshal(value, &dto); err != nil {
			return Permanent(fmt.Errorf("%w: %v", errBadJSON, err))
		}
		ev := ToDomain(dto)
		if ev.OrderID == "" {
			return Permanent(errEmptyOrderID)
		}
		return h(ctx, ev)
	}
}

// AvailabilityHandler decodes courier availability signals for h.
func AvailabilityHandler(h func(context.Context, orders.AvailabilityEvent) error) Handler {
	return func(ctx context.Context, value []byte) error {
		var dto AvailabilityDTO
		if err := json.Unmarshal(value, &dto); err != nil {
			return Permanent(fmt.Errorf("%w: %v", errBadJSON, err))
		}
		ev := ToAvailability(dto)
		if ev.CourierID <= 0 {
			return Permanent(errEmptyCourierID)
		}
		if !ev.Status.SelfSettable() {
			return Permanent(fmt.Errorf("%w: %q", errBadStatus, dto.Status))
		}
		return h(ctx, ev)
	}
}

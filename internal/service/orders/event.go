package orders

import (
	"time"

	"service-dispatch/internal/domain"
)

// Event is a single order event
type Event struct {
	OrderID   string
	Status    string
	RadiusKm  float64 // 0 selects the matching default
	CreatedAt time.Time
}

// AvailabilityEvent is a courier availability signal from the courier app backend.
type AvailabilityEvent struct {
	CourierID int64
	Status    domain.CourierStatus
	Location  *domain.Coordinate
}

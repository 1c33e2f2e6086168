package domain

import "time"

type (
	// CourierStatus represents the availability status of a courier.
	CourierStatus string
	// CourierTransportType represents the transport type of a courier.
	CourierTransportType string
)

// Courier represents a delivery partner.
type Courier struct {
	ID                int64
	UserID            string
	Name              string
	Phone             string
	Status            CourierStatus
	TransportType     CourierTransportType
	ServiceAreaID     int64
	Location          *Coordinate // nil until the first report
	LocationUpdatedAt *time.Time
	TotalDeliveries   int
}

// AvailabilityUpdate is a courier-initiated status change.
// A nil Location keeps the stored coordinate.
type AvailabilityUpdate struct {
	CourierID int64
	Status    CourierStatus
	Location  *Coordinate
}

// PartialCourierUpdate is a roster update; nil fields are left unchanged.
type PartialCourierUpdate struct {
	ID            int64
	Name          *string
	Phone         *string
	Status        *CourierStatus
	TransportType *CourierTransportType
	ServiceAreaID *int64
}

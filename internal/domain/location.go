package domain

import "time"

// LocationHistoryEntry is one point of a delivery's route.
type LocationHistoryEntry struct {
	ID         int64
	OrderID    string
	CourierID  int64
	Coordinate Coordinate
	RecordedAt time.Time
}

// ActiveDelivery is the order a courier is currently carrying.
type ActiveDelivery struct {
	OrderID     string
	CustomerID  string
	Status      OrderStatus
	Destination *Coordinate
}

// LocationReport is the result of a courier position report.
type LocationReport struct {
	OrderID    string
	ETAMinutes int
	DistanceKm float64
	RecordedAt time.Time
}

// DeliveryLocation is the last known courier position for an order.
// All fields are nil when no courier is assigned or nothing was reported yet.
type DeliveryLocation struct {
	Lat        *float64
	Lng        *float64
	LastUpdate *time.Time
	ETAMinutes *int
}

// DeliveryTrack is the raw data needed to build a DeliveryLocation.
type DeliveryTrack struct {
	OrderID           string
	CourierID         *int64
	CourierLocation   *Coordinate
	LocationUpdatedAt *time.Time
	Destination       *Coordinate
	CustomerID        string
	Status            OrderStatus
}

// Viewer is the caller asking for an order's tracking data.
type Viewer struct {
	UserID string
	Admin  bool
}

// CanTrack reports whether the viewer may follow an order placed by customerID.
func (v Viewer) CanTrack(customerID string) bool {
	return v.Admin || (v.UserID != "" && v.UserID == customerID)
}

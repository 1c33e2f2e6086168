package domain

import "time"

// OrderStatus is the lifecycle status of an order. Only the delivery part of the
// lifecycle is driven by this service.
type OrderStatus string

// Order statuses relevant to delivery.
const (
	OrderReadyForPickup     OrderStatus = "READY_FOR_PICKUP"
	OrderAssignedToDelivery OrderStatus = "ASSIGNED_TO_DELIVERY"
	OrderPickedUp           OrderStatus = "PICKED_UP"
	OrderInTransit          OrderStatus = "IN_TRANSIT"
	OrderDelivered          OrderStatus = "DELIVERED"
	OrderCancelled          OrderStatus = "CANCELLED"
)

// Active reports whether a courier is currently working on an order in this status.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderAssignedToDelivery, OrderPickedUp, OrderInTransit:
		return true
	default:
		return false
	}
}

// Order is the delivery view of a marketplace order.
type Order struct {
	ID                string
	VendorID          int64
	CustomerID        string
	Status            OrderStatus
	DeliveryPartnerID *int64
	Pickup            *Coordinate // vendor location
	ServiceAreaID     int64       // vendor's service area
	Destination       *Coordinate
	DeliveryAddress   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AvailableDelivery is an unassigned ready order as seen by a courier.
type AvailableDelivery struct {
	OrderID         string
	Pickup          Coordinate
	Destination     *Coordinate
	DeliveryAddress string
	DistanceKm      float64
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	OrderID   string
	From      OrderStatus
	To        OrderStatus
	CourierID int64
	ChangedAt time.Time
}

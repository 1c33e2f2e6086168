package handlers

import (
	"time"

	"service-dispatch/internal/domain"
)

type coordinateDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type courierDTO struct {
	ID                int64                       `json:"id"`
	UserID            string                      `json:"userId"`
	Name              string                      `json:"name"`
	Phone             string                      `json:"phone"`
	Status            domain.CourierStatus        `json:"status"`
	TransportType     domain.CourierTransportType `json:"transportType"`
	ServiceAreaID     int64                       `json:"serviceAreaId"`
	Location          *coordinateDTO              `json:"location,omitempty"`
	LocationUpdatedAt *time.Time                  `json:"locationUpdatedAt,omitempty"`
	TotalDeliveries   int                         `json:"totalDeliveries"`
}

type createCourierRequest struct {
	UserID        string                      `json:"userId"`
	Name          string                      `json:"name"`
	Phone         string                      `json:"phone"`
	TransportType domain.CourierTransportType `json:"transportType"`
	ServiceAreaID int64                       `json:"serviceAreaId"`
}

type updateCourierRequest struct {
	Name          *string                      `json:"name,omitempty"`
	Phone         *string                      `json:"phone,omitempty"`
	Status        *domain.CourierStatus        `json:"status,omitempty"`
	TransportType *domain.CourierTransportType `json:"transportType,omitempty"`
	ServiceAreaID *int64                       `json:"serviceAreaId,omitempty"`
}

type availabilityRequest struct {
	Status    domain.CourierStatus `json:"status"`
	Latitude  *float64             `json:"latitude,omitempty"`
	Longitude *float64             `json:"longitude,omitempty"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type locationReportResponse struct {
	Success    bool      `json:"success"`
	OrderID    string    `json:"orderId"`
	ETAMinutes int       `json:"eta"`
	DistanceKm float64   `json:"distanceKm"`
	RecordedAt time.Time `json:"recordedAt"`
}

type deliveryLocationResponse struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	LastUpdate *time.Time `json:"lastUpdate"`
	ETAMinutes *int       `json:"eta"`
}

type routePointDTO struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recordedAt"`
}

type routeResponse struct {
	OrderID         string          `json:"orderId"`
	Points          []routePointDTO `json:"points"`
	TotalDistanceKm float64         `json:"totalDistanceKm"`
}

type assignmentResponse struct {
	Success    bool      `json:"success"`
	OrderID    string    `json:"orderId"`
	CourierID  int64     `json:"courierId"`
	AssignedAt time.Time `json:"assignedAt"`
}

type statusChangeResponse struct {
	Success   bool               `json:"success"`
	OrderID   string             `json:"orderId"`
	From      domain.OrderStatus `json:"from"`
	Status    domain.OrderStatus `json:"status"`
	ChangedAt time.Time          `json:"changedAt"`
}

type availableDeliveryDTO struct {
	OrderID         string         `json:"orderId"`
	VendorLocation  coordinateDTO  `json:"vendorLocation"`
	Destination     *coordinateDTO `json:"destination,omitempty"`
	DeliveryAddress string         `json:"deliveryAddress,omitempty"`
	DistanceKm      float64        `json:"distanceKm"`
}

type orderReadyRequest struct {
	RadiusKm *float64 `json:"radiusKm,omitempty"`
}

type notifyResultResponse struct {
	OrderID       string    `json:"orderId"`
	CandidateIDs  []int64   `json:"candidateIds"`
	NotifiedCount int       `json:"notifiedCount"`
	Failed        int       `json:"failed"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

type sendResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}

type placeDTO struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address,omitempty"`
}

type deliveryAssignedRequest struct {
	Recipients          []string  `json:"recipients"`
	OrderID             string    `json:"orderId"`
	VendorLocation      placeDTO  `json:"vendorLocation"`
	DeliveryAddress     placeDTO  `json:"deliveryAddress"`
	EstimatedDistanceKm float64   `json:"estimatedDistanceKm"`
	PaymentAmount       float64   `json:"paymentAmount"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

type notificationCancelledRequest struct {
	Recipients []string `json:"recipients"`
	OrderID    string   `json:"orderId"`
	Reason     string   `json:"reason"`
}

type locationUpdateRequest struct {
	Recipients []string  `json:"recipients"`
	DeliveryID string    `json:"deliveryId"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	ETA        int       `json:"eta"`
	Timestamp  time.Time `json:"timestamp"`
}

type deliveryCompletedRequest struct {
	Recipients  []string  `json:"recipients"`
	DeliveryID  string    `json:"deliveryId"`
	CompletedAt time.Time `json:"completedAt"`
}

type createAreaRequest struct {
	Name    string          `json:"name"`
	Polygon []coordinateDTO `json:"polygon"`
}

type areaDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Polygon  []coordinateDTO `json:"polygon"`
	Centroid coordinateDTO   `json:"centroid"`
	AreaKm2  float64         `json:"areaKm2"`
}

type containsResponse struct {
	ServiceAreaID int64 `json:"serviceAreaId"`
	Contains      bool  `json:"contains"`
}

package handlers

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/notify"
)

type courierUsecase interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Courier, error)
	List(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	Create(ctx context.Context, c *domain.Courier) (int64, error)
	UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) error
	SetAvailabilityForUser(ctx context.Context, userID string, status domain.CourierStatus, loc *domain.Coordinate) error
}

// courierLookup resolves the courier profile behind an authenticated user.
type courierLookup interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Courier, error)
}

type matchingUsecase interface {
	NotifyNearbyCouriers(ctx context.Context, orderID string, radiusKm float64) (domain.NotifyResult, error)
	AcceptDelivery(ctx context.Context, orderID string, courierID int64) (domain.Assignment, error)
	MarkPickedUp(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error)
	MarkInTransit(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error)
	MarkDelivered(ctx context.Context, orderID string, courierID int64) (domain.StatusChange, error)
	ListAvailable(ctx context.Context, courierID int64) ([]domain.AvailableDelivery, error)
}

type trackingUsecase interface {
	ReportLocation(ctx context.Context, courierID int64, lat, lng float64) (domain.LocationReport, error)
	GetDeliveryLocation(ctx context.Context, orderID string, viewer domain.Viewer) (domain.DeliveryLocation, error)
	GetDeliveryRoute(ctx context.Context, orderID string, viewer domain.Viewer) ([]domain.LocationHistoryEntry, error)
}

type areaUsecase interface {
	Create(ctx context.Context, name string, polygon []domain.Coordinate) (*domain.ServiceArea, error)
	Contains(ctx context.Context, id int64, point domain.Coordinate) (bool, error)
}

type notifier interface {
	Send(ctx context.Context, recipients []string, ev notify.Event) (notify.Result, error)
}

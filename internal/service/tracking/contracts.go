package tracking

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/notify"
)

type courierRepository interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Courier, error)
}

type orderRepository interface {
	FindActiveByCourier(ctx context.Context, courierID int64) (*domain.ActiveDelivery, error)
	GetTrack(ctx context.Context, orderID string) (*domain.DeliveryTrack, error)
}

type historyRepository interface {
	Route(ctx context.Context, orderID string) ([]domain.LocationHistoryEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notifier interface {
	Send(ctx context.Context, recipients []string, ev notify.Event) (notify.Result, error)
}

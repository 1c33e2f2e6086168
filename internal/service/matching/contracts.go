package matching

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/notify"
)

type orderRepository interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListReady(ctx context.Context, serviceAreaID int64, limit int) ([]domain.Order, error)
}

type courierRepository interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
	ListAvailableInBox(ctx context.Context, serviceAreaID int64, box geo.Box) ([]domain.Courier, error)
}

type notifier interface {
	Send(ctx context.Context, recipients []string, ev notify.Event) (notify.Result, error)
	SendEach(ctx context.Context, msgs []notify.Message) (notify.Result, error)
}

// EscalationPublisher hands expired offers over to operations.
type EscalationPublisher interface {
	PublishEscalation(ctx context.Context, e domain.OfferEscalation) error
}

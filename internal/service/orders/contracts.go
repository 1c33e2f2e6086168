//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"service-dispatch/internal/domain"
)

// MatchingPort abstracts the subset of matching operations
// needed by the Processor when handling order events
type MatchingPort interface {
	NotifyNearbyCouriers(ctx context.Context, orderID string, radiusKm float64) (domain.NotifyResult, error)
	CancelOffer(ctx context.Context, orderID string) error
}

// AvailabilityPort applies courier availability signals.
type AvailabilityPort interface {
	SetAvailability(ctx context.Context, u domain.AvailabilityUpdate) error
}

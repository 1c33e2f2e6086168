package courier

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
)

// courierRepository defines storage operations required by the business layer.
type courierRepository interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Courier, error)
	List(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	Create(ctx context.Context, c *domain.Courier) (int64, error)
	UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error)
	SetAvailability(ctx context.Context, u domain.AvailabilityUpdate, at time.Time) (bool, error)
}

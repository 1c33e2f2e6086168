// Package dispatchtx defines the repository view available inside a dispatch transaction.
package dispatchtx

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
)

// Repository is bound to one open transaction. Lookups return nil, nil for missing rows.
type Repository interface {
	GetOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	GetCourierForUpdate(ctx context.Context, courierID int64) (*domain.Courier, error)
	// AssignCourier sets the delivery partner only if the order is still ready and unassigned.
	// It reports false when another transaction got there first.
	AssignCourier(ctx context.Context, orderID string, courierID int64, at time.Time) (bool, error)
	// TransitionOrder moves the order from one status to the next only if it is still in from.
	TransitionOrder(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) (bool, error)
	UpdateCourierStatus(ctx context.Context, courierID int64, status domain.CourierStatus) error
	IncrementDeliveries(ctx context.Context, courierID int64) error
	AppendStatusChange(ctx context.Context, ch domain.StatusChange) error
	UpdateCourierLocation(ctx context.Context, courierID int64, c domain.Coordinate, at time.Time) error
	AppendLocation(ctx context.Context, e *domain.LocationHistoryEntry) error
}

// Runner executes fn inside a transaction, committing when fn returns nil.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

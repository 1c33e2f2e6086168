package orders

import (
	"context"
	"errors"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// Processor turns order and courier signals into matching and availability calls.
// Business rejections are logged and dropped; only infrastructure errors are returned
// so the caller can retry.
type Processor struct {
	matching MatchingPort
	couriers AvailabilityPort
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new orders.Processor
func NewProcessor(matching MatchingPort, couriers AvailabilityPort, logger logx.Logger) *Processor {
	p := &Processor{
		matching: matching,
		couriers: couriers,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onReady, p.onCancelled)
	return p
}

// Handle processes a single orders.Event
func (p *Processor) Handle(ctx context.Context, e Event) error {
	if p.factory == nil {
		return nil
	}
	fn, ok := p.factory.get(e.Status)
	if !ok {
		return nil
	}
	return fn(ctx, e)
}

// HandleAvailability applies a courier availability signal.
func (p *Processor) HandleAvailability(ctx context.Context, e AvailabilityEvent) error {
	err := p.couriers.SetAvailability(ctx, domain.AvailabilityUpdate{
		CourierID: e.CourierID,
		Status:    e.Status,
		Location:  e.Location,
	})
	return p.drop(err, "availability signal rejected", logx.Int64("courier_id", e.CourierID))
}

func (p *Processor) onReady(ctx context.Context, e Event) error {
	res, err := p.matching.NotifyNearbyCouriers(ctx, e.OrderID, e.RadiusKm)
	if err != nil {
		return p.drop(err, "order ready signal rejected", logx.String("order_id", e.OrderID))
	}
	p.logger.Debug("order ready handled",
		logx.String("order_id", e.OrderID),
		logx.Int("notified", res.NotifiedCount),
	)
	return nil
}

func (p *Processor) onCancelled(ctx context.Context, e Event) error {
	return p.drop(p.matching.CancelOffer(ctx, e.OrderID), "order cancel signal rejected", logx.String("order_id", e.OrderID))
}

func (p *Processor) drop(err error, msg string, fields ...logx.Field) error {
	if err == nil {
		return nil
	}
	if isBusiness(err) {
		p.logger.Warn(msg, append(fields, logx.Err(err))...)
		return nil
	}
	return err
}

func isBusiness(err error) bool {
	for _, kind := range []error{
		apperr.ErrInvalid,
		apperr.ErrInvalidCoordinate,
		apperr.ErrNotFound,
		apperr.ErrPrecondition,
		apperr.ErrConflict,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

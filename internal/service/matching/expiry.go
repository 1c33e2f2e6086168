package matching

import (
	"context"
	"errors"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Rematcher opens a further offer round for an order.
type Rematcher interface {
	Rematch(ctx context.Context, orderID string, radiusKm float64, round int) (domain.NotifyResult, error)
}

// ExpiryPolicy decides what happens to an offer nobody accepted in time.
type ExpiryPolicy interface {
	Expired(ctx context.Context, offer domain.DeliveryOffer, r Rematcher) error
}

// LogOnly leaves expired orders for the caller to retry later.
type LogOnly struct{}

// Expired implements ExpiryPolicy.
func (LogOnly) Expired(context.Context, domain.DeliveryOffer, Rematcher) error { return nil }

// Widen re-offers the order with the radius multiplied by Factor, capped at MaxRadiusKm.
// Once the cap has been tried the order is left alone.
type Widen struct {
	Factor      float64
	MaxRadiusKm float64
}

// Expired implements ExpiryPolicy.
func (w Widen) Expired(ctx context.Context, offer domain.DeliveryOffer, r Rematcher) error {
	if w.Factor <= 1 || offer.RadiusKm >= w.MaxRadiusKm {
		return nil
	}
	radius := offer.RadiusKm * w.Factor
	if radius > w.MaxRadiusKm {
		radius = w.MaxRadiusKm
	}
	_, err := r.Rematch(ctx, offer.OrderID, radius, offer.Round+1)
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// Escalate publishes the expired offer for operations to handle.
type Escalate struct {
	Publisher EscalationPublisher
}

// Expired implements ExpiryPolicy.
func (e Escalate) Expired(ctx context.Context, offer domain.DeliveryOffer, _ Rematcher) error {
	ids := make([]int64, 0, len(offer.Candidates))
	for _, c := range offer.Candidates {
		ids = append(ids, c.CourierID)
	}
	return e.Publisher.PublishEscalation(ctx, domain.OfferEscalation{
		OrderID:      offer.OrderID,
		CandidateIDs: ids,
		RadiusKm:     offer.RadiusKm,
		Round:        offer.Round,
		ExpiredAt:    offer.ExpiresAt,
	})
}

package matching

import (
	"sync"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// acceptedRetention is how long an accepted offer is kept after the assignment committed.
// Expired and cancelled offers stay until a new round replaces them or the order moves on.
const acceptedRetention = 10 * time.Minute

// OfferBook holds the live offer of every order. Offers are process-local and not persisted.
type OfferBook struct {
	mu     sync.Mutex
	offers map[string]*domain.DeliveryOffer
}

// NewOfferBook creates an empty OfferBook.
func NewOfferBook() *OfferBook {
	return &OfferBook{offers: make(map[string]*domain.DeliveryOffer)}
}

func snapshot(o *domain.DeliveryOffer) domain.DeliveryOffer {
	cp := *o
	cp.Candidates = append([]domain.Candidate(nil), o.Candidates...)
	return cp
}

// Open records o as the current offer for its order, replacing any earlier round.
// The returned func reports whether this very round is still pending and unexpired at now.
func (b *OfferBook) Open(o domain.DeliveryOffer) func(now time.Time) bool {
	o.State = domain.OfferPending
	o.Candidates = append([]domain.Candidate(nil), o.Candidates...)
	rec := &o
	b.mu.Lock()
	b.offers[o.OrderID] = rec
	b.mu.Unlock()

	return func(now time.Time) bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.offers[rec.OrderID] == rec && rec.State == domain.OfferPending && !rec.Expired(now)
	}
}

// Get returns a copy of the order's current offer.
func (b *OfferBook) Get(orderID string) (domain.DeliveryOffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[orderID]
	if !ok {
		return domain.DeliveryOffer{}, false
	}
	return snapshot(o), true
}

// Check rejects acceptance of an order whose offer has expired or was withdrawn.
// Orders without a recorded offer pass.
func (b *OfferBook) Check(orderID string, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[orderID]
	if !ok {
		return nil
	}
	switch o.State {
	case domain.OfferExpired:
		return apperr.New(apperr.ErrConflict, "offer expired")
	case domain.OfferCancelled:
		return apperr.New(apperr.ErrConflict, "offer cancelled")
	case domain.OfferPending:
		if o.Expired(now) {
			return apperr.New(apperr.ErrConflict, "offer expired")
		}
	}
	return nil
}

// Resolve marks the offer as accepted by courierID and returns it.
func (b *OfferBook) Resolve(orderID string, courierID int64, now time.Time) (domain.DeliveryOffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[orderID]
	if !ok || o.State == domain.OfferAccepted {
		return domain.DeliveryOffer{}, false
	}
	o.State = domain.OfferAccepted
	o.AcceptedBy = courierID
	o.ResolvedAt = now
	return snapshot(o), true
}

// Cancel withdraws a pending offer.
func (b *OfferBook) Cancel(orderID string, now time.Time) (domain.DeliveryOffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[orderID]
	if !ok || o.State != domain.OfferPending {
		return domain.DeliveryOffer{}, false
	}
	o.State = domain.OfferCancelled
	o.ResolvedAt = now
	return snapshot(o), true
}

// Forget drops whatever is recorded for the order.
func (b *OfferBook) Forget(orderID string) {
	b.mu.Lock()
	delete(b.offers, orderID)
	b.mu.Unlock()
}

// Closed returns the orders whose offer expired or was cancelled before cutoff.
func (b *OfferBook) Closed(cutoff time.Time) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for id, o := range b.offers {
		if (o.State == domain.OfferExpired || o.State == domain.OfferCancelled) && o.ResolvedAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// Expire marks every pending offer past its deadline as expired and returns them.
// Offers accepted longer than acceptedRetention ago are dropped.
func (b *OfferBook) Expire(now time.Time) []domain.DeliveryOffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.DeliveryOffer
	for id, o := range b.offers {
		if o.State == domain.OfferPending {
			if o.Expired(now) {
				o.State = domain.OfferExpired
				o.ResolvedAt = now
				out = append(out, snapshot(o))
			}
			continue
		}
		if o.State == domain.OfferAccepted && now.Sub(o.ResolvedAt) > acceptedRetention {
			delete(b.offers, id)
		}
	}
	return out
}

// Len returns the number of tracked offers.
func (b *OfferBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.offers)
}

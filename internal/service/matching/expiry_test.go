package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	testlog "service-dispatch/internal/testutil"
)

type rematchCall struct {
	orderID string
	radius  float64
	round   int
}

type fakeRematcher struct {
	calls []rematchCall
	err   error
}

func (f *fakeRematcher) Rematch(_ context.Context, orderID string, radiusKm float64, round int) (domain.NotifyResult, error) {
	f.calls = append(f.calls, rematchCall{orderID, radiusKm, round})
	return domain.NotifyResult{}, f.err
}

type fakePublisher struct {
	got []domain.OfferEscalation
	err error
}

func (f *fakePublisher) PublishEscalation(_ context.Context, e domain.OfferEscalation) error {
	f.got = append(f.got, e)
	return f.err
}

func TestWiden_MultipliesRadiusUpToCap(t *testing.T) {
	t.Parallel()

	w := Widen{Factor: 2, MaxRadiusKm: 15}
	r := &fakeRematcher{}

	require.NoError(t, w.Expired(context.Background(), domain.DeliveryOffer{OrderID: "o", RadiusKm: 5, Round: 1}, r))
	require.NoError(t, w.Expired(context.Background(), domain.DeliveryOffer{OrderID: "o", RadiusKm: 10, Round: 2}, r))
	require.NoError(t, w.Expired(context.Background(), domain.DeliveryOffer{OrderID: "o", RadiusKm: 15, Round: 3}, r))

	assert.Equal(t, []rematchCall{{"o", 10, 2}, {"o", 15, 3}}, r.calls)
}

func TestWiden_IgnoresOrdersThatMovedOn(t *testing.T) {
	t.Parallel()

	w := Widen{Factor: 2, MaxRadiusKm: 20}
	offer := domain.DeliveryOffer{OrderID: "o", RadiusKm: 5, Round: 1}

	assert.NoError(t, w.Expired(context.Background(), offer, &fakeRematcher{err: apperr.New(apperr.ErrConflict, "already assigned")}))
	boom := errors.New("db down")
	assert.ErrorIs(t, w.Expired(context.Background(), offer, &fakeRematcher{err: boom}), boom)
}

func TestEscalate_PublishesCandidates(t *testing.T) {
	t.Parallel()

	p := &fakePublisher{}
	exp := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	err := Escalate{Publisher: p}.Expired(context.Background(), domain.DeliveryOffer{
		OrderID:    "o",
		RadiusKm:   5,
		Round:      2,
		ExpiresAt:  exp,
		Candidates: []domain.Candidate{{CourierID: 3}, {CourierID: 4}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.OfferEscalation{{
		OrderID: "o", CandidateIDs: []int64{3, 4}, RadiusKm: 5, Round: 2, ExpiredAt: exp,
	}}, p.got)
}

func TestSweepExpired_AppliesPolicy(t *testing.T) {
	rec := testlog.New()
	f := newFixture(rec.Logger(), Config{Expiry: Widen{Factor: 2, MaxRadiusKm: 20}})
	f.store.addOrder(readyOrder("O"))
	// about 7.8 km from the pickup point: outside 5 km, inside 10 km
	f.store.addCourier(availableCourier(1, "far", 13.04, 77.59))

	_, err := f.svc.NotifyNearbyCouriers(context.Background(), "O", 5)
	require.NoError(t, err)
	_, ok := f.svc.offers.Get("O")
	require.False(t, ok)

	f.svc.offers.Open(domain.DeliveryOffer{OrderID: "O", RadiusKm: 5, Round: 1, ExpiresAt: f.clock.now()})
	assert.Equal(t, 1, f.svc.SweepExpired(context.Background()))

	offer, ok := f.svc.offers.Get("O")
	require.True(t, ok)
	assert.Equal(t, 2, offer.Round)
	assert.Equal(t, 10.0, offer.RadiusKm)
	assert.Equal(t, domain.OfferPending, offer.State)
	assert.Len(t, f.inbox.ofType("far", "delivery_assigned"), 1)
	assert.Len(t, rec.Events("offer_expired"), 1)
}

type recordingPolicy struct {
	orders []string
	ctxErr []error
}

func (p *recordingPolicy) Expired(ctx context.Context, offer domain.DeliveryOffer, _ Rematcher) error {
	p.orders = append(p.orders, offer.OrderID)
	p.ctxErr = append(p.ctxErr, ctx.Err())
	return nil
}

func TestSweepExpired_RunsPolicyOutsideTheSweep(t *testing.T) {
	policy := &recordingPolicy{}
	f := newFixture(nil, Config{Expiry: policy})
	var queued []func()
	f.svc.async = func(fn func()) { queued = append(queued, fn) }

	f.svc.offers.Open(domain.DeliveryOffer{OrderID: "a", ExpiresAt: f.clock.now()})
	f.svc.offers.Open(domain.DeliveryOffer{OrderID: "b", ExpiresAt: f.clock.now()})

	ctx, cancel := context.WithCancel(context.Background())
	require.Equal(t, 2, f.svc.SweepExpired(ctx))
	cancel()
	assert.Empty(t, policy.orders, "the sweep does not wait on the policy")
	require.Len(t, queued, 2)

	for _, fn := range queued {
		fn()
	}
	assert.ElementsMatch(t, []string{"a", "b"}, policy.orders)
	assert.Equal(t, []error{nil, nil}, policy.ctxErr, "policies outlive the sweep context")
}

package matching

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/ws"
)

// fakeStore is an in-memory store whose transactions are serialized like row locks
// and rolled back on error.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	couriers map[int64]*domain.Courier
	history  []domain.StatusChange
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*domain.Order{}, couriers: map[int64]*domain.Courier{}}
}

func (s *fakeStore) addOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = &o
}

func (s *fakeStore) addCourier(c domain.Courier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couriers[c.ID] = &c
}

func (s *fakeStore) setOrderStatus(id string, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].Status = status
}

func (s *fakeStore) order(id string) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *fakeStore) courier(id int64) domain.Courier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.couriers[id]
}

func (s *fakeStore) statusChanges() []domain.StatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StatusChange(nil), s.history...)
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make(map[string]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = *v
	}
	couriers := make(map[int64]domain.Courier, len(s.couriers))
	for k, v := range s.couriers {
		couriers[k] = *v
	}
	historyLen := len(s.history)

	if err := fn(fakeTx{s}); err != nil {
		for k, v := range orders {
			s.orders[k] = &v
		}
		for k, v := range couriers {
			s.couriers[k] = &v
		}
		s.history = s.history[:historyLen]
		return err
	}
	return nil
}

type fakeTx struct{ s *fakeStore }

func (t fakeTx) GetOrderForUpdate(_ context.Context, id string) (*domain.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (t fakeTx) GetCourierForUpdate(_ context.Context, id int64) (*domain.Courier, error) {
	c, ok := t.s.couriers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (t fakeTx) AssignCourier(_ context.Context, orderID string, courierID int64, at time.Time) (bool, error) {
	o := t.s.orders[orderID]
	if o == nil || o.DeliveryPartnerID != nil || o.Status != domain.OrderReadyForPickup {
		return false, nil
	}
	id := courierID
	o.DeliveryPartnerID = &id
	o.Status = domain.OrderAssignedToDelivery
	o.UpdatedAt = at
	return true, nil
}

func (t fakeTx) TransitionOrder(_ context.Context, orderID string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	o := t.s.orders[orderID]
	if o == nil || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	return true, nil
}

func (t fakeTx) UpdateCourierStatus(_ context.Context, id int64, status domain.CourierStatus) error {
	t.s.couriers[id].Status = status
	return nil
}

func (t fakeTx) IncrementDeliveries(_ context.Context, id int64) error {
	t.s.couriers[id].TotalDeliveries++
	return nil
}

func (t fakeTx) AppendStatusChange(_ context.Context, ch domain.StatusChange) error {
	t.s.history = append(t.s.history, ch)
	return nil
}

func (t fakeTx) UpdateCourierLocation(context.Context, int64, domain.Coordinate, time.Time) error {
	panic("not used by matching")
}

func (t fakeTx) AppendLocation(context.Context, *domain.LocationHistoryEntry) error {
	panic("not used by matching")
}

type fakeOrders struct{ s *fakeStore }

func (f fakeOrders) Get(_ context.Context, id string) (*domain.Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f fakeOrders) ListReady(_ context.Context, areaID int64, limit int) ([]domain.Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []domain.Order
	for _, o := range f.s.orders {
		if o.Status == domain.OrderReadyForPickup && o.DeliveryPartnerID == nil && o.ServiceAreaID == areaID {
			out = append(out, *o)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCouriers struct{ s *fakeStore }

func (f fakeCouriers) Get(_ context.Context, id int64) (*domain.Courier, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.couriers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f fakeCouriers) ListAvailableInBox(_ context.Context, areaID int64, box geo.Box) ([]domain.Courier, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []domain.Courier
	for _, c := range f.s.couriers {
		if c.Status != domain.CourierAvailable || c.Location == nil || c.ServiceAreaID != areaID {
			continue
		}
		l := c.Location
		if l.Lat < box.MinLat || l.Lat > box.MaxLat || l.Lng < box.MinLng || l.Lng > box.MaxLng {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

// inbox is a connection registry where every user is online unless taken offline;
// it keeps what each one got.
type inbox struct {
	mu      sync.Mutex
	msgs    map[string][]map[string]any
	offline map[string]bool
}

func newInbox() *inbox {
	return &inbox{msgs: map[string][]map[string]any{}, offline: map[string]bool{}}
}

func (b *inbox) setOnline(userID string, online bool) {
	b.mu.Lock()
	b.offline[userID] = !online
	b.mu.Unlock()
}

func (b *inbox) SendToUser(userID string, msg []byte) ws.Delivery {
	var m map[string]any
	_ = json.Unmarshal(msg, &m)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offline[userID] {
		return ws.Delivery{}
	}
	b.msgs[userID] = append(b.msgs[userID], m)
	return ws.Delivery{Attempted: 1, Delivered: 1}
}

func (b *inbox) types(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, m := range b.msgs[userID] {
		t, _ := m["type"].(string)
		out = append(out, t)
	}
	return out
}

func (b *inbox) ofType(userID, typ string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, m := range b.msgs[userID] {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store *fakeStore
	inbox *inbox
	clock *clock
	svc   *Service
}

func newFixture(logger logx.Logger, cfg Config) *fixture {
	return newFixtureWithNotify(logger, cfg, notify.Config{Concurrency: 8})
}

func newFixtureWithNotify(logger logx.Logger, cfg Config, ncfg notify.Config) *fixture {
	if logger == nil {
		logger = logx.Nop()
	}
	store := newFakeStore()
	box := newInbox()
	n := notify.New(box, nil, logx.Nop(), metrics.NewNop(), ncfg)
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(fakeOrders{store}, fakeCouriers{store}, store, n, NewOfferBook(), logger, metrics.NewNop(), cfg)
	svc.now = clk.now
	svc.async = func(f func()) { f() }
	return &fixture{store: store, inbox: box, clock: clk, svc: svc}
}

func coord(lat, lng float64) *domain.Coordinate {
	return &domain.Coordinate{Lat: lat, Lng: lng}
}

func readyOrder(id string) domain.Order {
	return domain.Order{
		ID:              id,
		VendorID:        1,
		CustomerID:      "customer-1",
		Status:          domain.OrderReadyForPickup,
		Pickup:          coord(12.97, 77.59),
		ServiceAreaID:   1,
		Destination:     coord(12.99, 77.62),
		DeliveryAddress: "MG Road 1",
	}
}

func availableCourier(id int64, user string, lat, lng float64) domain.Courier {
	return domain.Courier{
		ID:            id,
		UserID:        user,
		Status:        domain.CourierAvailable,
		TransportType: domain.TransportTypeScooter,
		ServiceAreaID: 1,
		Location:      coord(lat, lng),
	}
}

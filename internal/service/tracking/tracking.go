package tracking

import (
	"context"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
)

// DefaultRetention is how long location history is kept.
const DefaultRetention = 90 * 24 * time.Hour

// Report sources, used as the metrics label.
const (
	SourceHTTP = "http"
	SourceWS   = "ws"
	SourceMQTT = "mqtt"
)

const notifyTimeout = 30 * time.Second

// Config tunes the tracking engine.
type Config struct {
	ETA       geo.ETA
	Retention time.Duration
	Timeout   time.Duration
}

// Service records courier positions and serves them to customers.
type Service struct {
	couriers courierRepository
	orders   orderRepository
	history  historyRepository
	tx       dispatchtx.Runner
	notifier notifier
	logger   logx.Logger
	metrics  *metrics.Set
	cfg      Config

	now   func() time.Time
	async func(func())
}

// NewService creates a tracking Service.
func NewService(
	couriers courierRepository,
	orders orderRepository,
	history historyRepository,
	tx dispatchtx.Runner,
	n notifier,
	logger logx.Logger,
	m *metrics.Set,
	cfg Config,
) *Service {
	if cfg.ETA == (geo.ETA{}) {
		cfg.ETA.BufferMinutes = geo.DefaultBufferMinutes
	}
	cfg.ETA = geo.NewETA(cfg.ETA.AverageSpeedKmh, cfg.ETA.BufferMinutes)
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		couriers: couriers,
		orders:   orders,
		history:  history,
		tx:       tx,
		notifier: n,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		async:    func(f func()) { go f() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// ReportLocation stores a courier position against the courier's active delivery and pushes
// the new position with an ETA to the customer. The server clock stamps the entry.
func (s *Service) ReportLocation(ctx context.Context, courierID int64, lat, lng float64) (domain.LocationReport, error) {
	return s.report(ctx, SourceHTTP, courierID, lat, lng)
}

// ReportLocationForUser is ReportLocation for the courier owning userID.
func (s *Service) ReportLocationForUser(ctx context.Context, userID string, lat, lng float64) (domain.LocationReport, error) {
	return s.Via(SourceHTTP).ReportLocationForUser(ctx, userID, lat, lng)
}

func (s *Service) report(ctx context.Context, source string, courierID int64, lat, lng float64) (domain.LocationReport, error) {
	point := domain.Coordinate{Lat: lat, Lng: lng}
	if err := geo.Validate(point); err != nil {
		s.metrics.LocationReports.WithLabelValues(source + "_rejected").Inc()
		return domain.LocationReport{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		return domain.LocationReport{}, err
	}
	if c == nil {
		return domain.LocationReport{}, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	active, err := s.orders.FindActiveByCourier(ctx, courierID)
	if err != nil {
		return domain.LocationReport{}, err
	}
	if active == nil {
		return domain.LocationReport{}, apperr.New(apperr.ErrPrecondition, "no active delivery")
	}
	if active.Destination == nil {
		return domain.LocationReport{}, apperr.New(apperr.ErrPrecondition, "destination not set")
	}

	now := s.now()
	entry := &domain.LocationHistoryEntry{OrderID: active.OrderID, CourierID: courierID, Coordinate: point, RecordedAt: now}
	if err := s.tx.WithTx(ctx, func(tx dispatchtx.Repository) error {
		if err := tx.UpdateCourierLocation(ctx, courierID, point, now); err != nil {
			return err
		}
		return tx.AppendLocation(ctx, entry)
	}); err != nil {
		return domain.LocationReport{}, err
	}

	dist, err := geo.DistanceKm(point, *active.Destination)
	if err != nil {
		dist = 0
	}
	rep := domain.LocationReport{
		OrderID:    active.OrderID,
		ETAMinutes: s.cfg.ETA.Minutes(dist),
		DistanceKm: dist,
		RecordedAt: now,
	}

	s.metrics.LocationReports.WithLabelValues(source).Inc()
	s.logger.Debug("location reported",
		logx.Event("location_reported"),
		logx.Int64("courier_id", courierID),
		logx.String("order_id", rep.OrderID),
		logx.String("source", source),
		logx.Int("eta_min", rep.ETAMinutes),
	)

	if active.CustomerID != "" {
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
			if _, err := s.notifier.Send(ctx, []string{active.CustomerID}, &notify.LocationUpdate{
				DeliveryID: rep.OrderID,
				Latitude:   lat,
				Longitude:  lng,
				ETA:        rep.ETAMinutes,
				Timestamp:  now,
			}); err != nil {
				s.logger.Error("push location update", logx.String("order_id", rep.OrderID), logx.Err(err))
			}
		})
	}
	return rep, nil
}

// GetDeliveryLocation returns the assigned courier's last position with an ETA.
// Only the customer who placed the order and admins may ask. Fields stay nil unless a courier
// is working on the order and has reported a position.
func (s *Service) GetDeliveryLocation(ctx context.Context, orderID string, viewer domain.Viewer) (domain.DeliveryLocation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t, err := s.track(ctx, orderID, viewer)
	if err != nil {
		return domain.DeliveryLocation{}, err
	}
	if !t.Status.Active() || t.CourierID == nil || t.CourierLocation == nil {
		return domain.DeliveryLocation{}, nil
	}

	lat, lng := t.CourierLocation.Lat, t.CourierLocation.Lng
	loc := domain.DeliveryLocation{Lat: &lat, Lng: &lng, LastUpdate: t.LocationUpdatedAt}
	if t.Destination != nil {
		if d, err := geo.DistanceKm(*t.CourierLocation, *t.Destination); err == nil {
			eta := s.cfg.ETA.Minutes(d)
			loc.ETAMinutes = &eta
		}
	}
	return loc, nil
}

// GetDeliveryRoute returns the order's location history oldest first, empty when nothing was recorded.
// Only the customer who placed the order and admins may ask.
func (s *Service) GetDeliveryRoute(ctx context.Context, orderID string, viewer domain.Viewer) ([]domain.LocationHistoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t, err := s.track(ctx, orderID, viewer)
	if err != nil {
		return nil, err
	}
	return s.route(ctx, t.OrderID)
}

func (s *Service) track(ctx context.Context, orderID string, viewer domain.Viewer) (*domain.DeliveryTrack, error) {
	orderID = strings.TrimSpace(orderID)
	t, err := s.orders.GetTrack(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.New(apperr.ErrNotFound, "order not found")
	}
	if !viewer.CanTrack(t.CustomerID) {
		return nil, apperr.New(apperr.ErrForbidden, "not your order")
	}
	return t, nil
}

func (s *Service) route(ctx context.Context, orderID string) ([]domain.LocationHistoryEntry, error) {
	route, err := s.history.Route(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		route = []domain.LocationHistoryEntry{}
	}
	return route, nil
}

// TotalDistanceTraveled sums the distances between consecutive route points.
func (s *Service) TotalDistanceTraveled(ctx context.Context, orderID string) (float64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	t, err := s.track(ctx, orderID, domain.Viewer{Admin: true})
	if err != nil {
		return 0, err
	}
	route, err := s.route(ctx, t.OrderID)
	if err != nil {
		return 0, err
	}
	return RouteDistance(route), nil
}

// RouteDistance is the length of an already loaded route in km.
func RouteDistance(route []domain.LocationHistoryEntry) float64 {
	points := make([]domain.Coordinate, len(route))
	for i, e := range route {
		points[i] = e.Coordinate
	}
	return geo.RouteDistanceKm(points)
}

// CleanupOldHistory deletes entries recorded before the retention window. Safe to run
// repeatedly and alongside writers.
func (s *Service) CleanupOldHistory(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Retention)
	n, err := s.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.HistoryPurged.Add(float64(n))
	s.logger.Info("location history purged",
		logx.Event("history_purged"),
		logx.Int64("deleted", n),
		logx.Time("cutoff", cutoff),
	)
	return n, nil
}

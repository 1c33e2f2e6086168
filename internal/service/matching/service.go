package matching

import (
	"context"
	"math"
	"sort"
	"strconv"
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

const (
	// DefaultRadiusKm is the proximity threshold used when the caller passes none.
	DefaultRadiusKm = 5.0
	// DefaultOfferTTL is the acceptance window of an offer.
	DefaultOfferTTL = 60 * time.Second

	availableLimit = 50
	notifyTimeout  = 30 * time.Second
)

// Config tunes the matching engine.
type Config struct {
	RadiusKm float64
	OfferTTL time.Duration
	Payment  PaymentPolicy
	Timeout  time.Duration
	Expiry   ExpiryPolicy
}

// Service matches ready orders with nearby couriers and drives the assignment lifecycle.
type Service struct {
	orders   orderRepository
	couriers courierRepository
	tx       dispatchtx.Runner
	notifier notifier
	offers   *OfferBook
	logger   logx.Logger
	metrics  *metrics.Set
	cfg      Config

	now   func() time.Time
	async func(func())
}

// NewService creates a matching Service.
func NewService(
	orders orderRepository,
	couriers courierRepository,
	tx dispatchtx.Runner,
	n notifier,
	offers *OfferBook,
	logger logx.Logger,
	m *metrics.Set,
	cfg Config,
) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadiusKm
	}
	if cfg.OfferTTL <= 0 {
		cfg.OfferTTL = DefaultOfferTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Expiry == nil {
		cfg.Expiry = LogOnly{}
	}
	if offers == nil {
		offers = NewOfferBook()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		orders:   orders,
		couriers: couriers,
		tx:       tx,
		notifier: n,
		offers:   offers,
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

func validateOrderID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperr.New(apperr.ErrInvalid, "orderId is required")
	}
	return id, nil
}

// NotifyNearbyCouriers offers a ready order to every available courier of its service area
// within radiusKm of the pickup point. A non-positive radius selects the configured default.
func (s *Service) NotifyNearbyCouriers(ctx context.Context, orderID string, radiusKm float64) (domain.NotifyResult, error) {
	if radiusKm <= 0 {
		radiusKm = s.cfg.RadiusKm
	}
	return s.match(ctx, orderID, radiusKm, 1)
}

// Rematch opens a new offer round for an order whose previous offer expired.
func (s *Service) Rematch(ctx context.Context, orderID string, radiusKm float64, round int) (domain.NotifyResult, error) {
	return s.match(ctx, orderID, radiusKm, round)
}

func (s *Service) match(ctx context.Context, orderID string, radiusKm float64, round int) (domain.NotifyResult, error) {
	orderID, err := validateOrderID(orderID)
	if err != nil {
		return domain.NotifyResult{}, err
	}
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		return domain.NotifyResult{}, apperr.New(apperr.ErrInvalid, "radius must be positive")
	}

	lookupCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	o, err := s.orders.Get(lookupCtx, orderID)
	if err != nil {
		return domain.NotifyResult{}, err
	}
	if o == nil {
		return domain.NotifyResult{}, apperr.New(apperr.ErrNotFound, "order not found")
	}
	if o.Status != domain.OrderReadyForPickup {
		return domain.NotifyResult{}, apperr.New(apperr.ErrConflict, "not ready for pickup")
	}
	if o.DeliveryPartnerID != nil {
		return domain.NotifyResult{}, apperr.New(apperr.ErrConflict, "already assigned")
	}
	if o.Pickup == nil {
		return domain.NotifyResult{}, apperr.New(apperr.ErrPrecondition, "location not set")
	}

	pool, err := s.couriers.ListAvailableInBox(lookupCtx, o.ServiceAreaID, geo.BoundingBox(*o.Pickup, radiusKm))
	if err != nil {
		return domain.NotifyResult{}, err
	}
	byID := make(map[string]domain.Courier, len(pool))
	points := make([]geo.Point, 0, len(pool))
	for _, c := range pool {
		if c.Location == nil || c.Status != domain.CourierAvailable || c.ServiceAreaID != o.ServiceAreaID {
			continue
		}
		id := strconv.FormatInt(c.ID, 10)
		byID[id] = c
		points = append(points, geo.Point{ID: id, Coordinate: *c.Location})
	}
	near, err := geo.FindWithinRadius(*o.Pickup, radiusKm, points)
	if err != nil {
		return domain.NotifyResult{}, err
	}

	res := domain.NotifyResult{OrderID: orderID, CandidateIDs: make([]int64, 0, len(near))}
	if len(near) == 0 {
		s.metrics.Offers.WithLabelValues("no_candidates").Inc()
		s.logger.Info("no couriers nearby",
			logx.Event("no_candidates"),
			logx.String("order_id", orderID),
			logx.Float64("radius_km", radiusKm),
			logx.Int("round", round),
		)
		return res, nil
	}

	var leg float64
	if o.Destination != nil {
		if leg, err = geo.DistanceKm(*o.Pickup, *o.Destination); err != nil {
			leg = 0
		}
	}

	now := s.now()
	offer := domain.DeliveryOffer{
		OrderID:   orderID,
		RadiusKm:  radiusKm,
		Round:     round,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.OfferTTL),
	}
	msgs := make([]notify.Message, 0, len(near))
	for _, n := range near {
		c := byID[n.ID]
		estimated := math.Round((n.DistanceKm+leg)*100) / 100
		payment := s.cfg.Payment.Amount(estimated)
		offer.Candidates = append(offer.Candidates, domain.Candidate{
			CourierID:     c.ID,
			UserID:        c.UserID,
			DistanceKm:    n.DistanceKm,
			PaymentAmount: payment,
		})
		res.CandidateIDs = append(res.CandidateIDs, c.ID)
		msgs = append(msgs, notify.Message{
			Recipient: c.UserID,
			Event: &notify.DeliveryAssigned{
				OrderID:             orderID,
				VendorLocation:      notify.PlaceOf(*o.Pickup, ""),
				DeliveryAddress:     deliveryPlace(o),
				EstimatedDistanceKm: estimated,
				PaymentAmount:       payment,
				ExpiresAt:           offer.ExpiresAt,
			},
		})
	}
	pending := s.offers.Open(offer)
	live := func() bool { return pending(s.now()) }
	for i := range msgs {
		msgs[i].Live = live
	}

	sent, err := s.notifier.SendEach(ctx, msgs)
	if err != nil {
		return domain.NotifyResult{}, err
	}
	res.NotifiedCount = sent.Sent
	res.Failed = sent.Failed
	res.ExpiresAt = offer.ExpiresAt

	s.metrics.Offers.WithLabelValues("opened").Inc()
	s.logger.Info("offer opened",
		logx.Event("offer_opened"),
		logx.String("order_id", orderID),
		logx.Int("candidates", len(res.CandidateIDs)),
		logx.Int("notified", res.NotifiedCount),
		logx.Int("failed", res.Failed),
		logx.Int("round", round),
		logx.Time("expires_at", offer.ExpiresAt),
	)
	return res, nil
}

func deliveryPlace(o *domain.Order) notify.Place {
	if o.Destination == nil {
		return notify.Place{Address: o.DeliveryAddress}
	}
	return notify.PlaceOf(*o.Destination, o.DeliveryAddress)
}

// AcceptDelivery assigns the order to the courier. Of any number of concurrent acceptances
// exactly one commits; the others fail with a conflict.
func (s *Service) AcceptDelivery(ctx context.Context, orderID string, courierID int64) (domain.Assignment, error) {
	orderID, err := validateOrderID(orderID)
	if err != nil {
		return domain.Assignment{}, err
	}

	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a domain.Assignment
	err = s.tx.WithTx(txCtx, func(tx dispatchtx.Repository) error {
		o, err := tx.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.New(apperr.ErrNotFound, "order not found")
		}
		if o.Status != domain.OrderReadyForPickup {
			return apperr.New(apperr.ErrConflict, "not ready for pickup")
		}
		if o.DeliveryPartnerID != nil {
			return apperr.New(apperr.ErrConflict, "already assigned")
		}

		c, err := tx.GetCourierForUpdate(txCtx, courierID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.New(apperr.ErrNotFound, "courier not found")
		}
		if c.Status != domain.CourierAvailable {
			return apperr.New(apperr.ErrConflict, "courier not available")
		}
		if c.ServiceAreaID != o.ServiceAreaID {
			return apperr.New(apperr.ErrConflict, "not in your service area")
		}

		now := s.now()
		if err := s.offers.Check(orderID, now); err != nil {
			return err
		}
		ok, err := tx.AssignCourier(txCtx, orderID, courierID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrConflict, "already assigned")
		}
		if err := tx.UpdateCourierStatus(txCtx, courierID, domain.CourierBusy); err != nil {
			return err
		}
		if err := tx.AppendStatusChange(txCtx, domain.StatusChange{
			OrderID:   orderID,
			From:      domain.OrderReadyForPickup,
			To:        domain.OrderAssignedToDelivery,
			CourierID: courierID,
			ChangedAt: now,
		}); err != nil {
			return err
		}
		a = domain.Assignment{OrderID: orderID, CourierID: courierID, AssignedAt: now}
		return nil
	})
	if err != nil {
		s.logger.Debug("accept rejected",
			logx.String("order_id", orderID),
			logx.Int64("courier_id", courierID),
			logx.Err(err),
		)
		return domain.Assignment{}, err
	}

	s.metrics.Offers.WithLabelValues("accepted").Inc()
	s.logger.Info("courier assigned",
		logx.Event("courier_assigned"),
		logx.String("order_id", orderID),
		logx.Int64("courier_id", courierID),
	)

	if offer, ok := s.offers.Resolve(orderID, courierID, a.AssignedAt); ok {
		if others := offer.OtherCandidates(courierID); len(others) > 0 {
			s.withdraw(ctx, orderID, others, notify.ReasonAcceptedByOther)
		}
	}
	return a, nil
}

// CancelOffer withdraws the open offer of an order, telling every candidate.
func (s *Service) CancelOffer(ctx context.Context, orderID string) error {
	orderID, err := validateOrderID(orderID)
	if err != nil {
		return err
	}
	offer, ok := s.offers.Cancel(orderID, s.now())
	if !ok {
		return nil
	}
	s.metrics.Offers.WithLabelValues("cancelled").Inc()
	s.logger.Info("offer cancelled",
		logx.Event("offer_cancelled"),
		logx.String("order_id", orderID),
	)
	if ids := offer.CandidateUserIDs(); len(ids) > 0 {
		s.withdraw(ctx, orderID, ids, notify.ReasonCancelled)
	}
	return nil
}

// withdraw pushes notification_cancelled without holding up the caller.
func (s *Service) withdraw(ctx context.Context, orderID string, recipients []string, reason string) {
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		res, err := s.notifier.Send(ctx, recipients, &notify.NotificationCancelled{OrderID: orderID, Reason: reason})
		if err != nil {
			s.logger.Error("withdraw offer", logx.String("order_id", orderID), logx.Err(err))
			return
		}
		s.logger.Info("offer withdrawn",
			logx.Event("offer_withdrawn"),
			logx.String("order_id", orderID),
			logx.String("reason", reason),
			logx.Int("sent", res.Sent),
			logx.Int("failed", res.Failed),
		)
	})
}

// ListAvailable returns unassigned ready orders of the courier's service area, nearest first
// when the courier position is known.
func (s *Service) ListAvailable(ctx context.Context, courierID int64) ([]domain.AvailableDelivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.ErrNotFound, "courier not found")
	}
	orders, err := s.orders.ListReady(ctx, c.ServiceAreaID, availableLimit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]domain.AvailableDelivery, 0, len(orders))
	for _, o := range orders {
		if o.Pickup == nil || s.offers.Check(o.ID, now) != nil {
			continue
		}
		d := domain.AvailableDelivery{
			OrderID:         o.ID,
			Pickup:          *o.Pickup,
			Destination:     o.Destination,
			DeliveryAddress: o.DeliveryAddress,
		}
		if c.Location != nil {
			if km, err := geo.DistanceKm(*c.Location, *o.Pickup); err == nil {
				d.DistanceKm = km
			}
		}
		out = append(out, d)
	}
	if c.Location != nil {
		sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	}
	return out, nil
}

// SweepExpired expires overdue offers and hands each to the expiry policy in the background.
// It also forgets closed offers of orders that are no longer waiting for a courier.
func (s *Service) SweepExpired(ctx context.Context) int {
	now := s.now()
	expired := s.offers.Expire(now)
	for _, o := range expired {
		s.metrics.Offers.WithLabelValues("expired").Inc()
		s.logger.Info("offer expired",
			logx.Event("offer_expired"),
			logx.String("order_id", o.OrderID),
			logx.Int("candidates", len(o.Candidates)),
			logx.Int("round", o.Round),
		)
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
			if err := s.cfg.Expiry.Expired(ctx, o, s); err != nil {
				s.logger.Warn("expiry policy failed", logx.String("order_id", o.OrderID), logx.Err(err))
			}
		})
	}
	s.pruneClosed(ctx, now.Add(-acceptedRetention))
	return len(expired)
}

func (s *Service) pruneClosed(ctx context.Context, cutoff time.Time) {
	ids := s.offers.Closed(cutoff)
	if len(ids) == 0 {
		return
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	for _, id := range ids {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			s.logger.Warn("prune offer", logx.String("order_id", id), logx.Err(err))
			return
		}
		if o == nil || o.Status != domain.OrderReadyForPickup || o.DeliveryPartnerID != nil {
			s.offers.Forget(id)
		}
	}
}

package app

import (
	"errors"
	"time"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/service/orders"
	"service-dispatch/internal/service/servicearea"
	"service-dispatch/internal/service/tracking"
	"service-dispatch/internal/transport/kafkapub"
)

func registerService(container *dig.Container) error {
	return provideAll(container,
		func(repo *repository.CourierRepo, logger logx.Logger, timeout time.Duration) *courier.Service {
			return courier.NewService(repo, logger, timeout)
		},
		func(repo *repository.ServiceAreaRepo, logger logx.Logger, timeout time.Duration) *servicearea.Service {
			return servicearea.NewService(repo, logger, timeout)
		},
		matching.NewOfferBook,
		newExpiryPolicy,
		newMatchingService,
		newTrackingService,
		func(m *matching.Service, c *courier.Service, logger logx.Logger) *orders.Processor {
			return orders.NewProcessor(m, c, logger)
		},
	)
}

// newExpiryPolicy maps the configured policy name onto a matching.ExpiryPolicy.
func newExpiryPolicy(cfg *config.Config, pub *kafkapub.Publisher) (matching.ExpiryPolicy, error) {
	switch cfg.Matching.ExpiryPolicy {
	case config.ExpiryWiden:
		return matching.Widen{Factor: cfg.Matching.WidenFactor, MaxRadiusKm: cfg.Matching.MaxRadiusKm}, nil
	case config.ExpiryEscalate:
		if pub == nil {
			return nil, errors.New("escalate expiry policy needs a kafka escalation topic")
		}
		return matching.Escalate{Publisher: pub}, nil
	default:
		return matching.LogOnly{}, nil
	}
}

type matchingIn struct {
	dig.In

	Cfg      *config.Config
	Logger   logx.Logger
	Metrics  *metrics.Set
	Orders   *repository.OrderRepo
	Couriers *repository.CourierRepo
	Tx       dispatchtx.Runner
	Notifier *notify.Notifier
	Offers   *matching.OfferBook
	Expiry   matching.ExpiryPolicy
	Timeout  time.Duration
}

func newMatchingService(in matchingIn) *matching.Service {
	mc := in.Cfg.Matching
	return matching.NewService(in.Orders, in.Couriers, in.Tx, in.Notifier, in.Offers, in.Logger, in.Metrics, matching.Config{
		RadiusKm: mc.RadiusKm,
		OfferTTL: mc.OfferTTL,
		Payment:  matching.PaymentPolicy{Base: mc.PaymentBase, PerKm: mc.PaymentPerKm},
		Timeout:  in.Timeout,
		Expiry:   in.Expiry,
	})
}

type trackingIn struct {
	dig.In

	Cfg      *config.Config
	Logger   logx.Logger
	Metrics  *metrics.Set
	Couriers *repository.CourierRepo
	Orders   *repository.OrderRepo
	History  *repository.LocationRepo
	Tx       dispatchtx.Runner
	Notifier *notify.Notifier
	Timeout  time.Duration
}

func newTrackingService(in trackingIn) *tracking.Service {
	tc := in.Cfg.Tracking
	return tracking.NewService(in.Couriers, in.Orders, in.History, in.Tx, in.Notifier, in.Logger, in.Metrics, tracking.Config{
		ETA:       geo.NewETA(tc.AvgSpeedKmh, tc.BufferMinutes),
		Retention: tc.Retention,
		Timeout:   in.Timeout,
	})
}

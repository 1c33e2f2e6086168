package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/config"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/http/pprofserver"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/service/servicearea"
	"service-dispatch/internal/service/tracking"
	"service-dispatch/internal/ws"
)

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// notify endpoints may wait out the whole retry schedule
			WriteTimeout: 35 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}
	return provideAll(container,
		handlers.New,
		func(logger logx.Logger, uc *courier.Service) *handlers.CourierHandler {
			return handlers.NewCourierHandler(logger, uc)
		},
		func(cfg *config.Config, logger logx.Logger, m *matching.Service, c *courier.Service) *handlers.DeliveryHandler {
			return handlers.NewDeliveryHandler(logger, m, c, cfg.Matching.RadiusKm)
		},
		func(logger logx.Logger, t *tracking.Service, c *courier.Service) *handlers.TrackingHandler {
			return handlers.NewTrackingHandler(logger, t, c)
		},
		func(logger logx.Logger, n *notify.Notifier) *handlers.NotifyHandler {
			return handlers.NewNotifyHandler(logger, n)
		},
		func(logger logx.Logger, a *servicearea.Service) *handlers.AreaHandler {
			return handlers.NewAreaHandler(logger, a)
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		newRouter,
		serverProvider,
		func(cfg *config.Config, logger logx.Logger) *pprofserver.Server {
			return pprofserver.New(cfg.Pprof, logger)
		},
	)
}

type routerIn struct {
	dig.In

	Cfg      *config.Config
	Logger   logx.Logger
	Metrics  *metrics.Set
	Registry *prometheus.Registry
	Verifier *auth.Verifier

	Base       *handlers.Handlers
	Couriers   *handlers.CourierHandler
	Deliveries *handlers.DeliveryHandler
	Tracking   *handlers.TrackingHandler
	Notify     *handlers.NotifyHandler
	Areas      *handlers.AreaHandler
	WS         *ws.Handler
	RateLimit  *ratelimit.Middleware
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Logger:         in.Logger,
		Metrics:        in.Metrics,
		Base:           in.Base,
		Couriers:       in.Couriers,
		Deliveries:     in.Deliveries,
		Tracking:       in.Tracking,
		Notify:         in.Notify,
		Areas:          in.Areas,
		WS:             in.WS,
		MetricsPage:    promhttp.HandlerFor(in.Registry, promhttp.HandlerOpts{Registry: in.Registry}),
		Verifier:       in.Verifier,
		InternalSecret: in.Cfg.Auth.InternalSecret,
		RateLimit:      in.RateLimit,
	})
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimitMiddleware(logger logx.Logger, m *metrics.Set, limiter ratelimit.Limiter) *ratelimit.Middleware {
	return ratelimit.New(logger, m.RateLimitExceeded, limiter)
}

// Package router assembles the HTTP surface.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
)

const (
	publicTimeout = 5 * time.Second
	// notify endpoints wait out the retry schedule
	internalTimeout = 30 * time.Second
)

// Deps are the handlers and guards the router mounts.
type Deps struct {
	Logger  logx.Logger
	Metrics *metrics.Set

	Base       *handlers.Handlers
	Couriers   *handlers.CourierHandler
	Deliveries *handlers.DeliveryHandler
	Tracking   *handlers.TrackingHandler
	Notify     *handlers.NotifyHandler
	Areas      *handlers.AreaHandler

	WS          http.Handler
	MetricsPage http.Handler

	Verifier       middleware.TokenVerifier
	InternalSecret string
	RateLimit      *ratelimit.Middleware
}

// New constructs the chi router.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Observability(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	if d.MetricsPage != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsPage)
	}
	// the connection outlives any request timeout
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(publicTimeout))
		r.Use(middleware.Authenticate(d.Verifier, d.Logger))
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler())
		}

		r.Route("/courier", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleCourier))
			r.Get("/deliveries/available", d.Deliveries.Available)
			r.Post("/deliveries/{orderId}/accept", d.Deliveries.Accept)
			r.Post("/deliveries/{orderId}/pickup", d.Deliveries.PickUp)
			r.Post("/deliveries/{orderId}/in-transit", d.Deliveries.InTransit)
			r.Post("/deliveries/{orderId}/deliver", d.Deliveries.Deliver)
			r.Post("/location", d.Tracking.ReportLocation)
			r.Put("/status", d.Couriers.SetStatus)
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleCustomer, auth.RoleAdmin))
			r.Get("/location", d.Tracking.DeliveryLocation)
			r.Get("/route", d.Tracking.Route)
		})

		r.Get("/service-areas/{id}/contains", d.Areas.Contains)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(chimw.Timeout(internalTimeout))
		r.Use(middleware.InternalSecret(d.InternalSecret, d.Logger))

		r.Post("/notify/delivery-assigned", d.Notify.DeliveryAssigned)
		r.Post("/notify/notification-cancelled", d.Notify.NotificationCancelled)
		r.Post("/notify/location-update", d.Notify.LocationUpdate)
		r.Post("/notify/delivery-completed", d.Notify.DeliveryCompleted)

		r.Post("/orders/{orderId}/ready", d.Deliveries.OrderReady)
		r.Post("/service-areas", d.Areas.Create)

		r.Post("/couriers", d.Couriers.Create)
		r.Get("/couriers", d.Couriers.List)
		r.Get("/couriers/{id}", d.Couriers.GetByID)
		r.Patch("/couriers/{id}", d.Couriers.Update)
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))
	return r
}

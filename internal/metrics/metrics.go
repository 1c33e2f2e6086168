// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set groups every collector. Build it once per registry with New.
type Set struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitExceeded   prometheus.Counter
	Notifications       *prometheus.CounterVec
	NotificationRetries prometheus.Counter
	MirrorFailures      prometheus.Counter
	WSConnections       prometheus.Gauge
	Offers              *prometheus.CounterVec
	LocationReports     *prometheus.CounterVec
	HistoryPurged       prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RateLimitExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_exceeded_total",
			Help: "Total number of rejected HTTP requests due to rate limiting",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications fanned out to recipients by event type and outcome",
		}, []string{"type", "outcome"}),
		NotificationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_retries_total",
			Help: "Delivery retries performed for recipients without a live connection",
		}),
		MirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_mirror_failures_total",
			Help: "Events that could not be mirrored to the message broker",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently authenticated WebSocket connections",
		}),
		Offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_offers_total",
			Help: "Delivery offers by outcome",
		}, []string{"outcome"}),
		LocationReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "location_reports_total",
			Help: "Courier location reports by source",
		}, []string{"source"}),
		HistoryPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "location_history_purged_total",
			Help: "Location history rows removed by retention cleanup",
		}),
	}
	reg.MustRegister(
		s.HTTPRequests, s.HTTPRequestDuration, s.RateLimitExceeded,
		s.Notifications, s.NotificationRetries, s.MirrorFailures,
		s.WSConnections, s.Offers, s.LocationReports, s.HistoryPurged,
	)
	return s
}

// NewNop returns collectors registered on a throwaway registry.
func NewNop() *Set {
	return New(prometheus.NewRegistry())
}

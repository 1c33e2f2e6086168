package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(reg)

	s.Offers.WithLabelValues("accepted").Inc()
	s.Notifications.WithLabelValues("delivery_assigned", "sent").Add(2)
	s.WSConnections.Inc()

	require.Equal(t, 1.0, testutil.ToFloat64(s.Offers.WithLabelValues("accepted")))
	require.Equal(t, 2.0, testutil.ToFloat64(s.Notifications.WithLabelValues("delivery_assigned", "sent")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.WSConnections))

	require.Panics(t, func() { New(reg) }, "duplicate registration must fail")
}

func TestNewNop_Independent(t *testing.T) {
	a, b := NewNop(), NewNop()
	a.RateLimitExceeded.Inc()
	require.Zero(t, testutil.ToFloat64(b.RateLimitExceeded))
}

package kafka_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/orders"
	"service-dispatch/internal/transport/kafka"
)

func TestToDomain_TrimsAndCopiesFields(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	dto := kafka.EventDTO{
		OrderID:   "  order-1  ",
		Status:    "  ready_for_pickup  ",
		RadiusKm:  3,
		CreatedAt: ts,
	}

	got := kafka.ToDomain(dto)

	require.Equal(t, orders.Event{
		OrderID:   "order-1",
		Status:    "ready_for_pickup",
		RadiusKm:  3,
		CreatedAt: ts,
	}, got)
}

func TestToAvailability_NeedsBothCoordinates(t *testing.T) {
	t.Parallel()

	lat := 12.97
	got := kafka.ToAvailability(kafka.AvailabilityDTO{CourierID: 1, Status: " offline ", Latitude: &lat})

	require.Equal(t, orders.AvailabilityEvent{CourierID: 1, Status: domain.CourierOffline}, got)
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/orders"
	testlog "service-dispatch/internal/testutil"
)

type fakeSession struct {
	ctx context.Context

	mu     sync.Mutex
	marked int
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(*sarama.ConsumerMessage, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked++
}

func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "" }
func (s *fakeSession) GenerationID() int32                      { return 0 }

func (s *fakeSession) MarkedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked
}

type fakeClaim struct {
	topic string
	ch    chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string              { return c.topic }
func (c fakeClaim) Partition() int32           { return 0 }
func (c fakeClaim) InitialOffset() int64       { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage {
	return c.ch
}

func claimOf(topic string, values ...[]byte) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for _, v := range values {
		ch <- &sarama.ConsumerMessage{Topic: topic, Value: v}
	}
	close(ch)
	return fakeClaim{topic: topic, ch: ch}
}

func newTestConsumer(rec *testlog.Recorder, handlers map[string]Handler) (*Consumer, *[]time.Duration) {
	var slept []time.Duration
	return &Consumer{
		logger:   rec.Logger(),
		handlers: handlers,
		attempts: 3,
		backoff:  100 * time.Millisecond,
		sleep: func(_ context.Context, d time.Duration) bool {
			slept = append(slept, d)
			return true
		},
	}, &slept
}

func TestConsumeClaim_BadJSON_Skips(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	c, slept := newTestConsumer(rec, map[string]Handler{
		"orders": OrderHandler(func(context.Context, orders.Event) error {
			t.Fatal("handler must not be called")
			return nil
		}),
	})
	h := &groupHandler{c: c}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf("orders", []byte("not-json"))))
	require.Equal(t, 1, sess.MarkedCount())
	require.Empty(t, *slept, "permanent failures are not retried")
	require.True(t, hasMsg(rec.Entries(), "kafka permanent failure, skipping message"))
}

func TestConsumeClaim_EmptyOrderID_Skips(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	calls := 0
	c, _ := newTestConsumer(rec, map[string]Handler{
		"orders": OrderHandler(func(context.Context, orders.Event) error {
			calls++
			return nil
		}),
	})
	h := &groupHandler{c: c}

	b, _ := json.Marshal(EventDTO{OrderID: "   ", Status: "ready_for_pickup"})
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf("orders", b)))
	require.Equal(t, 1, sess.MarkedCount())
	require.Equal(t, 0, calls)
	require.True(t, hasMsg(rec.Entries(), "kafka permanent failure, skipping message"))
}

func TestConsumeClaim_HandlerError_RetriesThenSkips(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	sentinel := errors.New("boom")
	calls := 0
	c, slept := newTestConsumer(rec, map[string]Handler{
		"orders": OrderHandler(func(context.Context, orders.Event) error {
			calls++
			return sentinel
		}),
	})
	h := &groupHandler{c: c}

	b, _ := json.Marshal(EventDTO{OrderID: "o1", Status: "ready_for_pickup", CreatedAt: time.Now().UTC()})
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf("orders", b)))
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
	require.Equal(t, 1, sess.MarkedCount())
	require.True(t, hasMsg(rec.Entries(), "kafka handle failed, skipping message"))
}

func TestConsumeClaim_Success_Marks(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	var got []orders.AvailabilityEvent
	c, _ := newTestConsumer(rec, map[string]Handler{
		"couriers": AvailabilityHandler(func(_ context.Context, ev orders.AvailabilityEvent) error {
			got = append(got, ev)
			return nil
		}),
	})
	h := &groupHandler{c: c}

	lat, lng := 12.97, 77.59
	b, _ := json.Marshal(AvailabilityDTO{CourierID: 5, Status: "available", Latitude: &lat, Longitude: &lng})
	busy, _ := json.Marshal(AvailabilityDTO{CourierID: 5, Status: "BUSY"})
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf("couriers", b, busy)))
	require.Equal(t, []orders.AvailabilityEvent{{
		CourierID: 5,
		Status:    domain.CourierAvailable,
		Location:  &domain.Coordinate{Lat: 12.97, Lng: 77.59},
	}}, got)
	require.Equal(t, 2, sess.MarkedCount())
}

func TestConsumeClaim_UnroutedTopic_Marks(t *testing.T) {
	t.Parallel()

	c, _ := newTestConsumer(testlog.New(), map[string]Handler{"orders": noop})
	h := &groupHandler{c: c}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, claimOf("other", []byte("{}"))))
	require.Equal(t, 1, sess.MarkedCount())
}

func hasMsg(entries []testlog.Entry, msg string) bool {
	for _, e := range entries {
		if e.Msg == msg {
			return true
		}
	}
	return false
}

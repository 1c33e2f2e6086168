package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	testlog "service-dispatch/internal/testutil"
)

type fakeGroup struct {
	topics [][]string
	errs   []error
	closed bool
}

func (g *fakeGroup) Consume(_ context.Context, topics []string, _ sarama.ConsumerGroupHandler) error {
	g.topics = append(g.topics, topics)
	if len(g.errs) == 0 {
		return nil
	}
	err := g.errs[0]
	g.errs = g.errs[1:]
	return err
}

func (g *fakeGroup) Errors() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}

func (g *fakeGroup) Close() error {
	g.closed = true
	return nil
}

func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func noop(context.Context, []byte) error { return nil }

func TestNewConsumer_SkipsWhenNoKafkaConfig(t *testing.T) {
	rec := testlog.New()

	got, err := NewConsumer(rec.Logger(), nil, "gid", map[string]Handler{"topic": noop})
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "", map[string]Handler{"topic": noop})
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewConsumer(rec.Logger(), []string{"b:9092"}, "gid", map[string]Handler{"   ": noop, "t": nil})
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, got.Run(context.Background()), "nil consumer runs as a no-op")
	require.NoError(t, got.Close())
}

func TestNewConsumer_ReturnsErrorWhenSaramaFails(t *testing.T) {
	orig := newConsumerGroup
	t.Cleanup(func() { newConsumerGroup = orig })

	sentinel := errors.New("boom")
	newConsumerGroup = func(_ []string, _ string, _ *sarama.Config) (sarama.ConsumerGroup, error) {
		return nil, sentinel
	}

	got, err := NewConsumer(testlog.New().Logger(), []string{"b:9092"}, "gid", map[string]Handler{"topic": noop})
	require.ErrorIs(t, err, sentinel)
	require.Nil(t, got)
}

func TestConsumer_Run_RetriesConsumeErrorsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := testlog.New()
	g := &fakeGroup{errs: []error{errors.New("rebalance")}}
	c := &Consumer{
		group:    g,
		logger:   rec.Logger(),
		handlers: map[string]Handler{"orders": noop},
		sleep: func(context.Context, time.Duration) bool {
			return true
		},
	}
	c.group = &cancelAfter{fakeGroup: g, n: 2, cancel: cancel}

	require.ErrorIs(t, c.Run(ctx), context.Canceled)
	require.Len(t, g.topics, 2)
	require.Equal(t, []string{"orders"}, g.topics[0])
	require.True(t, hasMsg(rec.Entries(), "kafka consume error"))

	require.NoError(t, c.Close())
	require.True(t, g.closed)
}

// cancelAfter cancels the run context after n Consume calls.
type cancelAfter struct {
	*fakeGroup
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Consume(ctx context.Context, topics []string, h sarama.ConsumerGroupHandler) error {
	err := c.fakeGroup.Consume(ctx, topics, h)
	if len(c.fakeGroup.topics) >= c.n {
		c.cancel()
	}
	return err
}

package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"service-dispatch/internal/logx"
)

// Handler processes a single raw message value. Errors wrapped with Permanent are not retried.
type Handler func(ctx context.Context, value []byte) error

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

var newConsumerGroup = sarama.NewConsumerGroup

// Consumer wraps a Sarama consumer group and dispatches messages to per-topic handlers
type Consumer struct {
	group    sarama.ConsumerGroup
	logger   logx.Logger
	handlers map[string]Handler
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) bool
}

// NewConsumer creates a new Kafka consumer. It returns nil, nil when brokers, group or
// topics are not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID string, handlers map[string]Handler) (*Consumer, error) {
	routes := make(map[string]Handler, len(handlers))
	for topic, h := range handlers {
		if topic = strings.TrimSpace(topic); topic != "" && h != nil {
			routes[topic] = h
		}
	}
	if len(brokers) == 0 || strings.TrimSpace(groupID) == "" || len(routes) == 0 {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:    group,
		logger:   logger,
		handlers: routes,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		sleep:    sleepCtx,
	}, nil
}

func (c *Consumer) topics() []string {
	out := make([]string, 0, len(c.handlers))
	for t := range c.handlers {
		out = append(out, t)
	}
	return out
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}
	topics := c.topics()

	for {
		if err := c.group.Consume(ctx, topics, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka consume error", logx.Err(err))
			if !c.sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

// handle runs h, retrying transient failures with a doubling backoff.
func (c *Consumer) handle(ctx context.Context, h Handler, value []byte) error {
	attempts := c.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = h(ctx, value); err == nil {
			return nil
		}
		var perm PermanentError
		if errors.As(err, &perm) {
			return err
		}
		if i+1 < attempts && !c.sleep(ctx, c.backoff<<i) {
			return err
		}
	}
	return err
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	handler, ok := h.c.handlers[claim.Topic()]
	for msg := range claim.Messages() {
		if !ok {
			sess.MarkMessage(msg, "")
			continue
		}
		if err := h.c.handle(sess.Context(), handler, msg.Value); err != nil {
			var perm PermanentError
			if errors.As(err, &perm) {
				h.c.logger.Warn("kafka permanent failure, skipping message",
					logx.String("topic", claim.Topic()),
					logx.Int64("offset", msg.Offset),
					logx.Err(err),
				)
			} else {
				h.c.logger.Error("kafka handle failed, skipping message",
					logx.String("topic", claim.Topic()),
					logx.Int64("offset", msg.Offset),
					logx.Err(err),
				)
			}
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package kafkapub publishes dispatch records to Kafka.
package kafkapub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes offer escalations keyed by order id.
type Publisher struct {
	w      writer
	topic  string
	logger logx.Logger
	now    func() time.Time
}

// New returns a Publisher, or nil when brokers or topic are not configured.
func New(brokers []string, topic string, logger logx.Logger) *Publisher {
	topic = strings.TrimSpace(topic)
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic:  topic,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PublishEscalation writes e as JSON.
func (p *Publisher) PublishEscalation(ctx context.Context, e domain.OfferEscalation) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode escalation: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(e.OrderID), Value: data, Time: p.now()}); err != nil {
		return fmt.Errorf("publish escalation of order %q: %w", e.OrderID, err)
	}
	p.logger.Info("offer escalated",
		logx.Event("offer_escalated"),
		logx.String("order_id", e.OrderID),
		logx.String("topic", p.topic),
	)
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}

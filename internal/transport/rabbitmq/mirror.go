// Package rabbitmq mirrors fanned-out events to a topic exchange.
package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"service-dispatch/internal/logx"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Mirror publishes every notification to Exchange with the event type as routing key.
type Mirror struct {
	conn     *amqp.Connection
	exchange string
	logger   logx.Logger

	mu sync.Mutex
	ch channel
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, logger logx.Logger) (*Mirror, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	logger.Info("rabbitmq mirror connected", logx.String("exchange", exchange))
	return &Mirror{conn: conn, exchange: exchange, logger: logger, ch: ch}, nil
}

// Publish sends body with routingKey.
func (m *Mirror) Publish(ctx context.Context, routingKey string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.ch.PublishWithContext(ctx,
		m.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now().UTC(),
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.ch.Close()
	if m.conn != nil {
		if cerr := m.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Package mqtt ingests courier positions published to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

const connectTimeout = 10 * time.Second

// Reporter records a position for the courier owning userID.
type Reporter interface {
	ReportLocationForUser(ctx context.Context, userID string, lat, lng float64) (domain.LocationReport, error)
}

type payload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

var errMissingCoordinate = errors.New("latitude and longitude are required")

// Subscriber listens on couriers/{userId}/location.
type Subscriber struct {
	client   paho.Client
	topic    string
	reporter Reporter
	logger   logx.Logger
}

// New returns a Subscriber, or nil when no broker is configured.
func New(cfg config.MQTT, reporter Reporter, logger logx.Logger) *Subscriber {
	if strings.TrimSpace(cfg.BrokerURL) == "" {
		return nil
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	return &Subscriber{
		client:   paho.NewClient(opts),
		topic:    cfg.Topic,
		reporter: reporter,
		logger:   logger,
	}
}

// Start connects and subscribes. Messages are handled until ctx is done or Stop is called.
// A nil Subscriber does nothing.
func (s *Subscriber) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if tok := s.client.Connect(); !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect mqtt: timeout")
	} else if err := tok.Error(); err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	tok := s.client.Subscribe(s.topic, 1, func(_ paho.Client, m paho.Message) {
		s.handle(ctx, m.Topic(), m.Payload())
	})
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribe %s: timeout", s.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info("mqtt subscribed", logx.String("topic", s.topic))
	return nil
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop() {
	if s == nil {
		return
	}
	s.client.Disconnect(250)
}

func (s *Subscriber) handle(ctx context.Context, topic string, body []byte) {
	userID, err := userFromTopic(topic)
	if err != nil {
		s.logger.Warn("mqtt bad topic", logx.String("topic", topic), logx.Err(err))
		return
	}
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		s.logger.Warn("mqtt bad payload", logx.String("user_id", userID), logx.Err(err))
		return
	}
	if p.Latitude == nil || p.Longitude == nil {
		s.logger.Warn("mqtt bad payload", logx.String("user_id", userID), logx.Err(errMissingCoordinate))
		return
	}
	if _, err := s.reporter.ReportLocationForUser(ctx, userID, *p.Latitude, *p.Longitude); err != nil {
		s.logger.Warn("mqtt location rejected", logx.String("user_id", userID), logx.Err(err))
	}
}

func userFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "couriers" || parts[2] != "location" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[1], nil
}

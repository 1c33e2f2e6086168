package app

import (
	"go.uber.org/dig"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/orders"
	"service-dispatch/internal/service/tracking"
	"service-dispatch/internal/transport/kafka"
	"service-dispatch/internal/transport/mqtt"
	"service-dispatch/internal/ws"
)

func registerTransport(container *dig.Container) error {
	return provideAll(container,
		newKafkaConsumer,
		func(cfg *config.Config, t *tracking.Service, logger logx.Logger) *mqtt.Subscriber {
			return mqtt.New(cfg.MQTT, t.Via(tracking.SourceMQTT), logger)
		},
		func(
			cfg *config.Config,
			registry *ws.Registry,
			verifier *auth.Verifier,
			t *tracking.Service,
			logger logx.Logger,
		) *ws.Handler {
			return ws.NewHandler(registry, verifier, t.Via(tracking.SourceWS), logger, ws.Config{
				AuthTimeout: cfg.WS.AuthTimeout,
				SendBuffer:  cfg.WS.SendBuffer,
			})
		},
	)
}

// orderTopics routes the order stream to matching and the courier stream to availability.
func orderTopics(cfg config.Kafka, p *orders.Processor) map[string]kafka.Handler {
	return map[string]kafka.Handler{
		cfg.OrdersTopic:   kafka.OrderHandler(p.Handle),
		cfg.CouriersTopic: kafka.AvailabilityHandler(p.HandleAvailability),
	}
}

// newKafkaConsumer returns nil when no brokers are configured.
func newKafkaConsumer(cfg *config.Config, logger logx.Logger, p *orders.Processor) (*kafka.Consumer, error) {
	if !cfg.Kafka.Enabled() {
		return nil, nil
	}
	return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, orderTopics(cfg.Kafka, p))
}

package app

import (
	"strings"

	"go.uber.org/dig"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/transport/kafkapub"
	"service-dispatch/internal/transport/rabbitmq"
	"service-dispatch/internal/ws"
)

func registerInfra(container *dig.Container) error {
	return provideAll(container,
		func(m *metrics.Set) *ws.Registry { return ws.NewRegistry(m.WSConnections) },
		func(cfg *config.Config) *auth.Verifier { return auth.NewVerifier(cfg.Auth.JWTSecret) },
		newEventMirror,
		newEscalationPublisher,
		newNotifier,
	)
}

// newEventMirror returns nil when RabbitMQ is not configured.
func newEventMirror(cfg *config.Config, logger logx.Logger) (*rabbitmq.Mirror, error) {
	if strings.TrimSpace(cfg.RabbitMQ.URL) == "" {
		return nil, nil
	}
	return rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
}

func newEscalationPublisher(cfg *config.Config, logger logx.Logger) *kafkapub.Publisher {
	return kafkapub.New(cfg.Kafka.Brokers, cfg.Kafka.EscalationTopic, logger)
}

type notifierIn struct {
	dig.In

	Cfg      *config.Config
	Logger   logx.Logger
	Metrics  *metrics.Set
	Registry *ws.Registry
	Mirror   *rabbitmq.Mirror
}

func newNotifier(in notifierIn) *notify.Notifier {
	var mirror notify.Mirror
	if in.Mirror != nil {
		mirror = in.Mirror
	}
	return notify.New(in.Registry, mirror, in.Logger, in.Metrics, notify.Config{
		MaxRetries:  in.Cfg.Notify.MaxRetries,
		BaseDelay:   in.Cfg.Notify.BaseDelay,
		Concurrency: in.Cfg.Notify.Concurrency,
	})
}

package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch",
}

var defaultMatching = Matching{
	RadiusKm:      5,
	OfferTTL:      60 * time.Second,
	SweepInterval: 5 * time.Second,
	ExpiryPolicy:  ExpiryNone,
	WidenFactor:   2,
	MaxRadiusKm:   20,
	PaymentBase:   30,
	PaymentPerKm:  8,
}

var defaultNotify = Notify{
	MaxRetries:  3,
	BaseDelay:   time.Second,
	Concurrency: 64,
}

var defaultTracking = Tracking{
	AvgSpeedKmh:     30,
	BufferMinutes:   5,
	Retention:       90 * 24 * time.Hour,
	CleanupInterval: time.Hour,
}

var defaultWS = WS{
	AuthTimeout: 10 * time.Second,
	SendBuffer:  32,
}

var defaultKafka = Kafka{
	GroupID:         "service-dispatch",
	OrdersTopic:     "orders.status",
	CouriersTopic:   "couriers.availability",
	EscalationTopic: "dispatch.escalations",
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       10,
	Burst:      20,
	TTL:        10 * time.Minute,
	MaxBuckets: 100000,
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:      defaultPort,
		LogLevel:  "info",
		DB:        defaultDB,
		Matching:  defaultMatching,
		Notify:    defaultNotify,
		Tracking:  defaultTracking,
		WS:        defaultWS,
		Kafka:     defaultKafka,
		RabbitMQ:  RabbitMQ{Exchange: "dispatch.events"},
		MQTT:      MQTT{ClientID: "service-dispatch", Topic: "couriers/+/location"},
		RateLimit: defaultRateLimit,
	}
}

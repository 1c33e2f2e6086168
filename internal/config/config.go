package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config is the full process configuration.
type Config struct {
	Port      int
	LogLevel  string
	DB        DB
	Auth      Auth
	Matching  Matching
	Notify    Notify
	Tracking  Tracking
	WS        WS
	Kafka     Kafka
	RabbitMQ  RabbitMQ
	MQTT      MQTT
	RateLimit RateLimit
	Pprof     PprofConfig
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a postgres:// connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Auth holds token verification secrets.
type Auth struct {
	JWTSecret      string
	InternalSecret string
}

// ExpiryPolicy selects what happens to an offer nobody accepted in time.
type ExpiryPolicy string

// Expiry policies.
const (
	ExpiryNone     ExpiryPolicy = "none"
	ExpiryWiden    ExpiryPolicy = "widen"
	ExpiryEscalate ExpiryPolicy = "escalate"
)

// Matching configures the delivery matching engine.
type Matching struct {
	RadiusKm      float64
	OfferTTL      time.Duration
	SweepInterval time.Duration
	ExpiryPolicy  ExpiryPolicy
	WidenFactor   float64
	MaxRadiusKm   float64
	PaymentBase   float64
	PaymentPerKm  float64
}

// Notify configures notification fan-out.
type Notify struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Concurrency int
}

// Tracking configures ETA estimation and history retention.
type Tracking struct {
	AvgSpeedKmh     float64
	BufferMinutes   int
	Retention       time.Duration
	CleanupInterval time.Duration
}

// WS configures client connections.
type WS struct {
	AuthTimeout time.Duration
	SendBuffer  int
}

// Kafka configures the consumer group and the escalation publisher. Empty Brokers disables both.
type Kafka struct {
	Brokers         []string
	GroupID         string
	OrdersTopic     string
	CouriersTopic   string
	EscalationTopic string
}

// Enabled reports whether brokers are configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// RabbitMQ configures the event mirror. Empty URL disables it.
type RabbitMQ struct {
	URL      string
	Exchange string
}

// MQTT configures courier position ingestion. Empty BrokerURL disables it.
type MQTT struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// RateLimit configures the public API limiter.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// PprofConfig configures the debug listener. Empty Addr disables it.
type PprofConfig struct {
	Addr string
	User string
	Pass string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := Default()
	e := &envReader{}

	cfg.Port = e.int("PORT", cfg.Port)
	cfg.LogLevel = e.str("LOG_LEVEL", cfg.LogLevel)

	cfg.DB.Host = e.str("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = e.str("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = e.str("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Pass = e.str("POSTGRES_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = e.str("POSTGRES_DB", cfg.DB.Name)

	cfg.Auth.JWTSecret = e.str("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.InternalSecret = e.str("INTERNAL_API_SECRET", cfg.Auth.InternalSecret)

	cfg.Matching.RadiusKm = e.float("MATCHING_RADIUS_KM", cfg.Matching.RadiusKm)
	cfg.Matching.OfferTTL = e.duration("MATCHING_OFFER_TTL", cfg.Matching.OfferTTL)
	cfg.Matching.SweepInterval = e.duration("MATCHING_SWEEP_INTERVAL", cfg.Matching.SweepInterval)
	cfg.Matching.ExpiryPolicy = ExpiryPolicy(strings.ToLower(e.str("MATCHING_EXPIRY_POLICY", string(cfg.Matching.ExpiryPolicy))))
	cfg.Matching.WidenFactor = e.float("MATCHING_WIDEN_FACTOR", cfg.Matching.WidenFactor)
	cfg.Matching.MaxRadiusKm = e.float("MATCHING_MAX_RADIUS_KM", cfg.Matching.MaxRadiusKm)
	cfg.Matching.PaymentBase = e.float("PAYMENT_BASE", cfg.Matching.PaymentBase)
	cfg.Matching.PaymentPerKm = e.float("PAYMENT_PER_KM", cfg.Matching.PaymentPerKm)

	cfg.Notify.MaxRetries = e.int("NOTIFY_MAX_RETRIES", cfg.Notify.MaxRetries)
	cfg.Notify.BaseDelay = e.duration("NOTIFY_BASE_DELAY", cfg.Notify.BaseDelay)
	cfg.Notify.Concurrency = e.int("NOTIFY_CONCURRENCY", cfg.Notify.Concurrency)

	cfg.Tracking.AvgSpeedKmh = e.float("TRACKING_AVG_SPEED_KMH", cfg.Tracking.AvgSpeedKmh)
	cfg.Tracking.BufferMinutes = e.int("TRACKING_BUFFER_MINUTES", cfg.Tracking.BufferMinutes)
	cfg.Tracking.Retention = e.duration("TRACKING_RETENTION", cfg.Tracking.Retention)
	cfg.Tracking.CleanupInterval = e.duration("TRACKING_CLEANUP_INTERVAL", cfg.Tracking.CleanupInterval)

	cfg.WS.AuthTimeout = e.duration("WS_AUTH_TIMEOUT", cfg.WS.AuthTimeout)
	cfg.WS.SendBuffer = e.int("WS_SEND_BUFFER", cfg.WS.SendBuffer)

	cfg.Kafka.Brokers = e.list("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.GroupID = e.str("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Kafka.OrdersTopic = e.str("KAFKA_ORDERS_TOPIC", cfg.Kafka.OrdersTopic)
	cfg.Kafka.CouriersTopic = e.str("KAFKA_COURIERS_TOPIC", cfg.Kafka.CouriersTopic)
	cfg.Kafka.EscalationTopic = e.str("KAFKA_ESCALATION_TOPIC", cfg.Kafka.EscalationTopic)

	cfg.RabbitMQ.URL = e.str("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.Exchange = e.str("RABBITMQ_EXCHANGE", cfg.RabbitMQ.Exchange)

	cfg.MQTT.BrokerURL = e.str("MQTT_BROKER_URL", cfg.MQTT.BrokerURL)
	cfg.MQTT.ClientID = e.str("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Topic = e.str("MQTT_TOPIC", cfg.MQTT.Topic)

	cfg.RateLimit.Enabled = e.bool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Rate = e.float("RATE_LIMIT_RATE", cfg.RateLimit.Rate)
	cfg.RateLimit.Burst = e.int("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.TTL = e.duration("RATE_LIMIT_TTL", cfg.RateLimit.TTL)
	cfg.RateLimit.MaxBuckets = e.int("RATE_LIMIT_MAX_BUCKETS", cfg.RateLimit.MaxBuckets)

	cfg.Pprof.Addr = e.str("PPROF_ADDR", cfg.Pprof.Addr)
	cfg.Pprof.User = e.str("PPROF_USER", cfg.Pprof.User)
	cfg.Pprof.Pass = e.str("PPROF_PASS", cfg.Pprof.Pass)

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}

	fs := pflag.CommandLine
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.Float64Var(&cfg.Matching.RadiusKm, "radius-km", cfg.Matching.RadiusKm, "default matching radius in km")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port))
	}
	if c.Matching.RadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("matching radius must be positive, got %v", c.Matching.RadiusKm))
	}
	if c.Matching.OfferTTL <= 0 {
		errs = append(errs, fmt.Errorf("offer ttl must be positive, got %v", c.Matching.OfferTTL))
	}
	switch c.Matching.ExpiryPolicy {
	case ExpiryNone, ExpiryWiden, ExpiryEscalate:
	default:
		errs = append(errs, fmt.Errorf("unknown expiry policy %q", c.Matching.ExpiryPolicy))
	}
	if c.Matching.ExpiryPolicy == ExpiryWiden && c.Matching.WidenFactor <= 1 {
		errs = append(errs, fmt.Errorf("widen factor must be > 1, got %v", c.Matching.WidenFactor))
	}
	if c.Matching.ExpiryPolicy == ExpiryEscalate && (!c.Kafka.Enabled() || c.Kafka.EscalationTopic == "") {
		errs = append(errs, errors.New("escalate policy requires KAFKA_BROKERS and KAFKA_ESCALATION_TOPIC"))
	}
	if c.Notify.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("notify retries must be >= 0, got %d", c.Notify.MaxRetries))
	}
	if c.Notify.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("notify concurrency must be positive, got %d", c.Notify.Concurrency))
	}
	if c.Tracking.AvgSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("average speed must be positive, got %v", c.Tracking.AvgSpeedKmh))
	}
	if c.Tracking.Retention <= 0 {
		errs = append(errs, fmt.Errorf("history retention must be positive, got %v", c.Tracking.Retention))
	}
	if c.WS.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("ws send buffer must be positive, got %d", c.WS.SendBuffer))
	}
	return errors.Join(errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/ws"
)

// Registry delivers raw messages to a user's connections.
type Registry interface {
	SendToUser(userID string, msg []byte) ws.Delivery
}

// Mirror republishes fanned-out events to other services.
type Mirror interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Config tunes retries and parallelism.
type Config struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Concurrency int
}

// Result counts recipients that got the event, those that did not, and those whose
// message went stale before it could be delivered.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Dropped int `json:"dropped,omitempty"`
}

// Add sums two results.
func (r Result) Add(o Result) Result {
	return Result{Sent: r.Sent + o.Sent, Failed: r.Failed + o.Failed, Dropped: r.Dropped + o.Dropped}
}

// Message is one event addressed to one user. When Live is set it is consulted before
// every attempt and a false answer drops the message.
type Message struct {
	Recipient string
	Event     Event
	Live      func() bool
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeDropped
)

// Notifier fans events out to recipients in parallel. Recipients without a live connection are
// retried with exponential backoff before being counted as failed.
type Notifier struct {
	registry Registry
	mirror   Mirror
	logger   logx.Logger
	metrics  *metrics.Set
	cfg      Config
	newID    func() string
	sleep    func(context.Context, time.Duration) bool
}

// New returns a Notifier. mirror may be nil.
func New(registry Registry, mirror Mirror, logger logx.Logger, m *metrics.Set, cfg Config) *Notifier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 64
	}
	return &Notifier{
		registry: registry,
		mirror:   mirror,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		newID:    uuid.NewString,
		sleep:    sleepWithContext,
	}
}

// Send pushes ev to every distinct recipient. All recipients share one event id.
func (n *Notifier) Send(ctx context.Context, recipients []string, ev Event) (Result, error) {
	body, err := n.encode(ev)
	if err != nil {
		return Result{}, err
	}
	targets := distinct(recipients)
	res := n.fanOut(ctx, ev.EventType(), len(targets), func(i int) (string, []byte, func() bool) {
		return targets[i], body, nil
	})
	n.mirrorEvent(ctx, ev.EventType(), targets, body)
	return res, nil
}

// SendEach pushes per-recipient events, each with its own event id.
// Messages are expected to share an event type.
func (n *Notifier) SendEach(ctx context.Context, msgs []Message) (Result, error) {
	bodies := make([][]byte, len(msgs))
	for i, m := range msgs {
		b, err := n.encode(m.Event)
		if err != nil {
			return Result{}, err
		}
		bodies[i] = b
	}
	if len(msgs) == 0 {
		return Result{}, nil
	}
	res := n.fanOut(ctx, msgs[0].Event.EventType(), len(msgs), func(i int) (string, []byte, func() bool) {
		return msgs[i].Recipient, bodies[i], msgs[i].Live
	})
	for i, m := range msgs {
		n.mirrorEvent(ctx, m.Event.EventType(), []string{m.Recipient}, bodies[i])
	}
	return res, nil
}

func (n *Notifier) encode(ev Event) ([]byte, error) {
	ev.stamp(Header{Type: ev.EventType(), EventID: n.newID()})
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return body, nil
}

func (n *Notifier) fanOut(ctx context.Context, eventType string, count int, at func(int) (string, []byte, func() bool)) Result {
	var sent, failed, dropped atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(n.cfg.Concurrency)
	for i := 0; i < count; i++ {
		recipient, body, live := at(i)
		g.Go(func() error {
			switch n.deliver(ctx, recipient, body, live) {
			case outcomeSent:
				sent.Add(1)
			case outcomeDropped:
				dropped.Add(1)
				n.logger.Debug("stale notification dropped",
					logx.Event("notification_dropped"),
					logx.String("type", eventType),
					logx.String("recipient", recipient),
				)
			default:
				failed.Add(1)
				n.logger.Warn("notification not delivered",
					logx.Event("notification_failed"),
					logx.String("type", eventType),
					logx.String("recipient", recipient),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Sent: int(sent.Load()), Failed: int(failed.Load()), Dropped: int(dropped.Load())}
	n.metrics.Notifications.WithLabelValues(eventType, "sent").Add(float64(res.Sent))
	n.metrics.Notifications.WithLabelValues(eventType, "failed").Add(float64(res.Failed))
	if res.Dropped > 0 {
		n.metrics.Notifications.WithLabelValues(eventType, "dropped").Add(float64(res.Dropped))
	}
	n.logger.Debug("notification fan-out done",
		logx.String("type", eventType),
		logx.Int("sent", res.Sent),
		logx.Int("failed", res.Failed),
		logx.Int("dropped", res.Dropped),
	)
	return res
}

// deliver tries once, then MaxRetries more times waiting BaseDelay*2^attempt in between.
// A non-nil live is checked before every attempt.
func (n *Notifier) deliver(ctx context.Context, recipient string, body []byte, live func() bool) outcome {
	for attempt := 0; ; attempt++ {
		if live != nil && !live() {
			return outcomeDropped
		}
		if n.registry.SendToUser(recipient, body).OK() {
			return outcomeSent
		}
		if attempt >= n.cfg.MaxRetries || ctx.Err() != nil {
			return outcomeFailed
		}
		n.metrics.NotificationRetries.Inc()
		if !n.sleep(ctx, n.cfg.BaseDelay<<attempt) {
			return outcomeFailed
		}
	}
}

type mirrored struct {
	Recipients []string        `json:"recipients"`
	Event      json.RawMessage `json:"event"`
}

func (n *Notifier) mirrorEvent(ctx context.Context, eventType string, recipients []string, body []byte) {
	if n.mirror == nil {
		return
	}
	payload, err := json.Marshal(mirrored{Recipients: recipients, Event: body})
	if err == nil {
		err = n.mirror.Publish(ctx, eventType, payload)
	}
	if err != nil {
		n.metrics.MirrorFailures.Inc()
		n.logger.Warn("event mirror failed", logx.String("type", eventType), logx.Err(err))
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package ws keeps track of live client connections and serves the WebSocket endpoint.
package ws

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Sender is a live connection able to take an outbound message.
type Sender interface {
	Send(msg []byte) error
}

// Delivery reports what SendToUser managed to do.
type Delivery struct {
	Attempted int
	Delivered int
}

// OK reports whether at least one connection took the message.
func (d Delivery) OK() bool { return d.Delivered > 0 }

// Registry maps user ids onto their authenticated connections.
// A user may hold several connections; each connection belongs to exactly one user.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[Sender]struct{}
	owner  map[Sender]string
	gauge  prometheus.Gauge
}

// NewRegistry returns an empty registry. gauge may be nil.
func NewRegistry(gauge prometheus.Gauge) *Registry {
	return &Registry{
		byUser: make(map[string]map[Sender]struct{}),
		owner:  make(map[Sender]string),
		gauge:  gauge,
	}
}

// Register adds s to userID's set. Registering the same connection twice is a no-op;
// registering it under another user moves it.
func (r *Registry) Register(userID string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[s]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(prev, s)
	}
	set := r.byUser[userID]
	if set == nil {
		set = make(map[Sender]struct{})
		r.byUser[userID] = set
	}
	set[s] = struct{}{}
	r.owner[s] = userID
	if r.gauge != nil {
		r.gauge.Inc()
	}
}

// Unregister removes s from whichever user owns it.
func (r *Registry) Unregister(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID, ok := r.owner[s]; ok {
		r.removeLocked(userID, s)
	}
}

func (r *Registry) removeLocked(userID string, s Sender) {
	delete(r.owner, s)
	if set := r.byUser[userID]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
	if r.gauge != nil {
		r.gauge.Dec()
	}
}

// IsConnected reports whether userID has at least one live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Connections returns the number of connections held by userID.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// SendToUser pushes msg to every connection of userID. A failing connection does not stop
// delivery to its siblings. Sends happen outside the lock.
func (r *Registry) SendToUser(userID string, msg []byte) Delivery {
	r.mu.RLock()
	targets := make([]Sender, 0, len(r.byUser[userID]))
	for s := range r.byUser[userID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	d := Delivery{Attempted: len(targets)}
	for _, s := range targets {
		if err := s.Send(msg); err == nil {
			d.Delivered++
		}
	}
	return d
}

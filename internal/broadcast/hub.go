// Package broadcast fans record changes out to connected MDT clients.
//
// A Hub delivers events to in-process subscribers (SSE and websocket
// streams) and keeps a small ring of recent events for late joiners. When a
// Relay is configured, published events travel through it so every instance
// behind a load balancer sees them; the relay feeds them back with Deliver.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DefaultRecent is the default ring buffer size.
const DefaultRecent = 50

// subscriberBuffer is the channel capacity of each subscriber. A subscriber
// that falls further behind loses events.
const subscriberBuffer = 32

// Event is one change notification.
type Event struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Relay carries events between instances.
type Relay interface {
	Send(ctx context.Context, ev Event) error
}

var (
	delivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_broadcast_events_total",
		Help: "Events delivered to the local hub.",
	})
	dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdt_broadcast_dropped_total",
		Help: "Events dropped because a subscriber was too slow.",
	})
	subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mdt_broadcast_subscribers",
		Help: "Connected event stream subscribers.",
	})
)

func init() {
	prometheus.MustRegister(delivered, dropped, subscribers)
}

// Hub is a best-effort publish/subscribe fan-out.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64

	ring  []Event
	head  int
	count int

	relay Relay
	log   zerolog.Logger
	now   func() time.Time
	wg    sync.WaitGroup
}

// Option configures a Hub.
type Option func(*Hub)

// WithRelay routes published events through r.
func WithRelay(r Relay) Option { return func(h *Hub) { h.relay = r } }

// WithRecent sets the ring buffer size. n <= 0 keeps the default.
func WithRecent(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.ring = make([]Event, n)
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l zerolog.Logger) Option { return func(h *Hub) { h.log = l } }

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs: make(map[uint64]chan Event),
		ring: make([]Event, DefaultRecent),
		now:  time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Publish broadcasts name with payload encoded as JSON. Without a relay the
// event is delivered locally before Publish returns. With a relay the send
// happens in the background; if it fails the event is delivered locally so
// this instance's clients still see it.
func (h *Hub) Publish(ctx context.Context, name string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn().Err(err).Str("event", name).Msg("broadcast payload not encodable")
		return
	}
	ev := Event{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: raw,
		At:      h.now().UTC(),
	}
	if h.relay == nil {
		h.Deliver(ev)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.relay.Send(sctx, ev); err != nil {
			h.log.Warn().Err(err).Str("event", name).Msg("broadcast relay failed; delivering locally")
			h.Deliver(ev)
		}
	}()
}

// Wait blocks until background relay sends finish.
func (h *Hub) Wait() { h.wg.Wait() }

// Deliver records ev and hands it to every subscriber without blocking.
func (h *Hub) Deliver(ev Event) {
	h.mu.Lock()
	h.ring[h.head] = ev
	h.head = (h.head + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
	h.mu.Unlock()

	delivered.Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropped.Inc()
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	subscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
			subscribers.Dec()
		})
	}
}

// Recent returns the buffered events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, 0, h.count)
	start := (h.head - h.count + len(h.ring)) % len(h.ring)
	for i := 0; i < h.count; i++ {
		out = append(out, h.ring[(start+i)%len(h.ring)])
	}
	return out
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Package notify sends record notifications to a Discord channel webhook.
//
// Notifications are side effects of writes: Notify returns immediately, the
// POST happens in the background, and failures are logged and counted but
// never reported to the caller.
package notify

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Event kinds.
const (
	KindArrest        = "arrest"
	KindReport        = "report"
	KindWanted        = "wanted"
	KindWeaponLicense = "weapon_license"
	KindOperator      = "operator"
)

// Field is one labelled value of an event.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Event is a structured notification.
type Event struct {
	Kind        string
	Title       string
	Description string
	Fields      []Field
	// Actor is the officer who triggered the event.
	Actor string
	At    time.Time
}

// Dispatcher delivers events. Implementations must not block the caller on
// network I/O and must never surface delivery errors.
type Dispatcher interface {
	Notify(ctx context.Context, ev Event)
}

// Noop drops every event. It is used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

var sent = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "mdt_notifications_total",
	Help: "Webhook notifications by kind and result.",
}, []string{"kind", "result"})

func init() {
	prometheus.MustRegister(sent)
}

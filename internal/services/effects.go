package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-mdt-backend/internal/notify"
)

// Publisher broadcasts a named change to connected clients.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any)
}

// Effects bundles the fire-and-forget side effects of a successful write.
// Nil members are skipped.
type Effects struct {
	Notifier  notify.Dispatcher
	Publisher Publisher
	Log       zerolog.Logger
}

func (e Effects) notify(ctx context.Context, ev notify.Event) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Notify(ctx, ev)
}

func (e Effects) publish(ctx context.Context, name string, payload any) {
	if e.Publisher == nil {
		return
	}
	e.Publisher.Publish(ctx, name, payload)
}

// eventName joins a record kind and an action, e.g. "arrest.created".
func eventName(kind, action string) string { return kind + "." + action }

const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
)

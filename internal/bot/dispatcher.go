package bot

import (
	"context"
	"errors"
	"slices"

	"github.com/Toxicable/github-robot/internal/logging"
)

// HandlerFunc handles one delivered event.
type HandlerFunc func(ctx context.Context, evt *Event) error

// Dispatcher routes delivered events to registered handlers. Registration
// happens once at startup; Dispatch may then be called concurrently.
type Dispatcher struct {
	logger   logging.Logger
	handlers map[string][]HandlerFunc
}

func NewDispatcher(logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.WithName("dispatch"),
		handlers: make(map[string][]HandlerFunc),
	}
}

// On registers handler for each of the given event names. A name is either
// a bare event type ("pull_request") or type.action ("pull_request.labeled").
func (d *Dispatcher) On(handler HandlerFunc, events ...string) {
	for _, name := range events {
		d.handlers[name] = append(d.handlers[name], handler)
	}
}

// Dispatch logs the received event, then invokes every handler registered
// under its type or type.action, in registration order. The receipt log is
// emitted before and regardless of handler outcome. Handler errors
// propagate joined to the transport.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) error {
	action := evt.Action()
	d.logger.Info("event received",
		"event", evt.Name,
		"action", action,
		"delivery", evt.DeliveryID,
		"payload", string(evt.Raw),
	)

	// Concat into a fresh slice; appending to the map-stored slice would
	// mutate its backing array under concurrent dispatches.
	matched := d.handlers[evt.Name]
	if action != "" {
		matched = slices.Concat(matched, d.handlers[evt.Name+"."+action])
	}

	var errs []error
	for _, handler := range matched {
		if err := handler(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

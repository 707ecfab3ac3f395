package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind names what happened.
type Kind string

const (
	KindOrderCommitted Kind = "order_committed"
	KindOrderWithdrawn Kind = "order_withdrawn"
)

// Event describes an order lifecycle change.
type Event struct {
	Kind    Kind
	OrderID string
	UserID  string
	MenuID  string
	TableID string
	Summary string
	At      time.Time
}

// Description renders the event as one line for humans.
func (e Event) Description() string {
	switch e.Kind {
	case KindOrderCommitted:
		return fmt.Sprintf("%s ordered %s at table %s", e.UserID, e.Summary, e.TableID)
	case KindOrderWithdrawn:
		return fmt.Sprintf("%s withdrew their order at table %s", e.UserID, e.TableID)
	default:
		return fmt.Sprintf("%s: order %s", e.Kind, e.OrderID)
	}
}

// Notifier accepts events fire-and-forget. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Discard is a Notifier that drops every event.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, Event) {}

// Sink delivers one event somewhere. Sinks run on the dispatcher goroutine.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver implements Sink.
func (s LogSink) Deliver(ctx context.Context, ev Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, ev.Description(),
		"event", string(ev.Kind),
		"order_id", ev.OrderID,
		"user_id", ev.UserID,
		"menu_id", ev.MenuID,
		"table_id", ev.TableID,
	)
	return nil
}

// Dispatcher queues events and delivers them to sinks in FIFO order.
//
// Thread-safety model:
//   - Notify(): safe from any goroutine, never blocks
//   - Run(): must be called from exactly one goroutine
type Dispatcher struct {
	queue  *eventQueue
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher delivering to sinks in order.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue:  newEventQueue(),
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
	}
}

// Notify implements Notifier. Events sent after Stop are dropped with a warning.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if !d.queue.Enqueue(ev) {
		d.logger.Warn("notification dropped: dispatcher stopped",
			"event", string(ev.Kind),
			"order_id", ev.OrderID,
		)
	}
}

// Pending returns the number of queued, undelivered events.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Run delivers queued events until ctx is cancelled or Stop is called.
// After Stop, events already queued are drained before Run returns.
//
// ERROR HANDLING: a sink error is logged with the event and delivery
// continues with the next sink. Notifications are never retried.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("notification dispatcher starting")

	for {
		ev, ok := d.queue.TryDequeue()
		if ok {
			d.deliver(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Debug("notification dispatcher stopping: context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if d.queue.closedAndEmpty() {
				d.logger.Debug("notification dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue; Run returns once it is drained.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, ev); err != nil {
			d.logger.Error("notification delivery failed",
				"event", string(ev.Kind),
				"order_id", ev.OrderID,
				"error", err,
			)
		}
	}
}

package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/inkwell/internal/event/dispatch"
	"github.com/dshills/inkwell/internal/logging"
)

// subscription is one registration of a handler for an event name.
type subscription struct {
	handle  Handle
	handler Handler
}

// Bus dispatches lifecycle events to registered handlers.
// It is safe for concurrent use, though the editor drives it from a single
// goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs map[Name][]subscription
	next uint64

	executor *dispatch.Executor
	reporter logging.Reporter
	log      *logging.Logger

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	reporter       logging.Reporter
	log            *logging.Logger
	handlerTimeout time.Duration
}

// WithReporter sets the sink for handler failures.
func WithReporter(r logging.Reporter) BusOption {
	return func(c *busConfig) {
		c.reporter = r
	}
}

// WithLogger sets the logger used for debug tracing of dispatch.
func WithLogger(l *logging.Logger) BusOption {
	return func(c *busConfig) {
		c.log = l
	}
}

// WithHandlerTimeout bounds the context passed to each handler.
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(c *busConfig) {
		c.handlerTimeout = d
	}
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	cfg := busConfig{reporter: logging.Discard}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.reporter == nil {
		cfg.reporter = logging.Discard
	}

	return &Bus{
		subs:     make(map[Name][]subscription),
		executor: dispatch.NewExecutor(dispatch.WithTimeout(cfg.handlerTimeout)),
		reporter: cfg.reporter,
		log:      cfg.log.WithComponent("event"),
	}
}

// Subscribe appends handler to the ordered list for name.
func (b *Bus) Subscribe(name Name, handler Handler) (Handle, error) {
	if !name.Valid() {
		return 0, invalidName(string(name))
	}
	if handler == nil {
		return 0, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	h := Handle(b.next)
	b.subs[name] = append(b.subs[name], subscription{handle: h, handler: handler})
	return h, nil
}

// SubscribeFunc is a convenience wrapper around Subscribe.
func (b *Bus) SubscribeFunc(name Name, fn HandlerFunc) (Handle, error) {
	if fn == nil {
		return 0, ErrNilHandler
	}
	return b.Subscribe(name, fn)
}

// Unsubscribe removes the registration identified by h. Removing a handle
// that is not registered for name is a no-op.
func (b *Bus) Unsubscribe(name Name, h Handle) error {
	if !name.Valid() {
		return invalidName(string(name))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.handle != h {
			continue
		}
		// Copy so a snapshot held by an in-flight Publish stays intact.
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, name)
		} else {
			b.subs[name] = next
		}
		return nil
	}
	return nil
}

// Publish delivers evt to every handler registered for evt.Name when the
// call starts, in registration order. Handler failures are reported and do
// not stop delivery. Once started, a publish reaches the whole snapshot even
// if ctx is done; handlers receive ctx and may observe it.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if !evt.Name.Valid() {
		return invalidName(string(evt.Name))
	}

	b.mu.RLock()
	snapshot := b.subs[evt.Name]
	b.mu.RUnlock()

	b.eventsPublished.Add(1)

	for _, sub := range snapshot {
		handler := sub.handler
		result := b.executor.Execute(ctx, func(ctx context.Context) error {
			return handler.Handle(ctx, evt)
		})
		b.handlersExecuted.Add(1)

		if result.Error == nil {
			continue
		}
		if result.Panicked {
			b.handlerPanics.Add(1)
		} else {
			b.handlerErrors.Add(1)
		}
		b.reporter.Report(&HandlerError{
			Event:    evt.Name,
			Handle:   sub.handle,
			Panicked: result.Panicked,
			Stack:    result.PanicStack,
			Err:      result.Error,
		})
	}

	b.log.WithFields(map[string]any{"event": string(evt.Name), "handlers": len(snapshot)}).Debug("event published")
	return nil
}

// Count returns how many registrations exist for name.
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Clear drops every registration.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Name][]subscription)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, subs := range b.subs {
		active += len(subs)
	}
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}

package plugin

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/event/dispatch"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/loop"
)

// Document is the bounded view of editor content granted to plugins.
type Document interface {
	// Content returns a copy of the current HTML.
	Content() string

	// Text returns the plain text of the current content.
	Text() string

	// SetContent replaces the content through the owning engine.
	SetContent(ctx context.Context, html string) error
}

// Subscriber is the part of the event bus a Context may subscribe through.
type Subscriber interface {
	Subscribe(name event.Name, handler event.Handler) (event.Handle, error)
	Unsubscribe(name event.Name, h event.Handle) error
}

// ErrNoEvents is returned by On when the host was built without a Subscriber.
var ErrNoEvents = errors.New("event subscriptions are not available")

// TimerID identifies a timer started through a Context.
type TimerID uint64

type resourceKind int

const (
	resourceTimer resourceKind = iota
	resourceCleanup
	resourceSubscription
)

// resource is one handle acquired through a Context.
type resource struct {
	id      uint64
	kind    resourceKind
	timer   loop.Timer
	cleanup func() error
	event   event.Name
	handle  event.Handle
}

// Context is the capability object handed to a plugin for one activation.
// It is created by the Host and closed by the Host; plugins cannot close it.
type Context struct {
	mu        sync.Mutex
	plugin    ID
	base      context.Context
	doc       Document
	sched     loop.Scheduler
	events    Subscriber
	executor  *dispatch.Executor
	reporter  logging.Reporter
	log       *logging.Logger
	resources []*resource
	next      uint64
	closing   bool
	closed    bool
}

func newContext(base context.Context, id ID, doc Document, sched loop.Scheduler, events Subscriber, exec *dispatch.Executor, rep logging.Reporter, log *logging.Logger) *Context {
	return &Context{
		plugin:   id,
		base:     base,
		doc:      doc,
		sched:    sched,
		events:   events,
		executor: exec,
		reporter: rep,
		log:      log.WithFields(map[string]any{"plugin": string(id)}),
	}
}

// Plugin returns the ID of the plugin this context belongs to.
func (c *Context) Plugin() ID {
	return c.plugin
}

// Closed reports whether the Host has torn the context down.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Handles returns the number of live tracked handles.
func (c *Context) Handles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resources)
}

// GetContent returns the current editor HTML.
func (c *Context) GetContent() (string, error) {
	if c.Closed() {
		return "", ErrContextClosed
	}
	return c.doc.Content(), nil
}

// GetText returns the plain text of the current editor content.
func (c *Context) GetText() (string, error) {
	if c.Closed() {
		return "", ErrContextClosed
	}
	return c.doc.Text(), nil
}

// SetContent replaces the editor content.
func (c *Context) SetContent(html string) error {
	if c.Closed() {
		return ErrContextClosed
	}
	return c.doc.SetContent(c.base, html)
}

// Log writes msg to the plugin-scoped logger.
func (c *Context) Log(msg string) {
	c.log.Info(msg)
}

// MaxDelay is the longest delay or interval a plugin timer can have.
const MaxDelay = 24 * time.Hour

// Millis converts a script delay in milliseconds into a Duration clamped to
// [0, MaxDelay]. NaN and negative values become 0; Infinity becomes MaxDelay.
func Millis(ms float64) time.Duration {
	switch {
	case math.IsNaN(ms) || ms <= 0:
		return 0
	case ms >= float64(MaxDelay/time.Millisecond):
		return MaxDelay
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// SetTimeout runs fn once after d. The timer is released automatically at
// teardown if it has not fired.
func (c *Context) SetTimeout(d time.Duration, fn func() error) (TimerID, error) {
	return c.startTimer(d, fn, false)
}

// SetInterval runs fn every d until cleared or torn down.
func (c *Context) SetInterval(d time.Duration, fn func() error) (TimerID, error) {
	return c.startTimer(d, fn, true)
}

func (c *Context) startTimer(d time.Duration, fn func() error, repeat bool) (TimerID, error) {
	if fn == nil {
		return 0, errors.New("timer callback is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return 0, ErrContextClosed
	}

	c.next++
	r := &resource{id: c.next, kind: resourceTimer}
	fire := func() { c.fireTimer(r, fn, repeat) }
	if repeat {
		r.timer = c.sched.Every(d, fire)
	} else {
		r.timer = c.sched.AfterFunc(d, fire)
	}
	c.resources = append(c.resources, r)
	return TimerID(r.id), nil
}

func (c *Context) fireTimer(r *resource, fn func() error, repeat bool) {
	c.mu.Lock()
	if c.closing || !c.holdsLocked(r) {
		c.mu.Unlock()
		return
	}
	if !repeat {
		c.removeLocked(r.id)
	}
	c.mu.Unlock()

	c.run(PhaseTimer, fn)
}

// ClearTimer stops a timer started through this context. It returns false
// if id is unknown or already finished.
func (c *Context) ClearTimer(id TimerID) bool {
	c.mu.Lock()
	r := c.takeLocked(uint64(id), resourceTimer)
	c.mu.Unlock()

	if r == nil {
		return false
	}
	r.timer.Stop()
	return true
}

// OnCleanup registers fn to run when the plugin is torn down.
func (c *Context) OnCleanup(fn func() error) error {
	if fn == nil {
		return errors.New("cleanup callback is nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return ErrContextClosed
	}
	c.next++
	c.resources = append(c.resources, &resource{id: c.next, kind: resourceCleanup, cleanup: fn})
	return nil
}

// On subscribes fn to the named event. The subscription is removed at
// teardown. Failures inside fn are reported, never returned to the bus.
func (c *Context) On(name string, fn func(event.Event) error) (uint64, error) {
	if fn == nil {
		return 0, errors.New("event callback is nil")
	}
	evtName, err := event.ParseName(name)
	if err != nil {
		return 0, err
	}
	if c.events == nil {
		return 0, ErrNoEvents
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return 0, ErrContextClosed
	}

	c.next++
	r := &resource{id: c.next, kind: resourceSubscription, event: evtName}
	handler := event.HandlerFunc(func(_ context.Context, evt event.Event) error {
		c.mu.Lock()
		live := !c.closing && c.holdsLocked(r)
		c.mu.Unlock()
		if live {
			_ = c.run(PhaseEvent, func() error { return fn(evt) })
		}
		return nil
	})
	h, err := c.events.Subscribe(evtName, handler)
	if err != nil {
		return 0, err
	}
	r.handle = h
	c.resources = append(c.resources, r)
	return r.id, nil
}

// Off removes a subscription made with On. It returns false if id is
// unknown.
func (c *Context) Off(id uint64) bool {
	c.mu.Lock()
	r := c.takeLocked(id, resourceSubscription)
	c.mu.Unlock()

	if r == nil {
		return false
	}
	_ = c.events.Unsubscribe(r.event, r.handle)
	return true
}

// holdsLocked must be called with c.mu held.
func (c *Context) holdsLocked(r *resource) bool {
	for _, other := range c.resources {
		if other == r {
			return true
		}
	}
	return false
}

// removeLocked must be called with c.mu held.
func (c *Context) removeLocked(id uint64) *resource {
	for i, r := range c.resources {
		if r.id == id {
			c.resources = append(c.resources[:i], c.resources[i+1:]...)
			return r
		}
	}
	return nil
}

// takeLocked removes the resource only if it has the expected kind.
// It must be called with c.mu held.
func (c *Context) takeLocked(id uint64, kind resourceKind) *resource {
	for _, r := range c.resources {
		if r.id == id {
			if r.kind != kind {
				return nil
			}
			return c.removeLocked(id)
		}
	}
	return nil
}

// run executes plugin code at the isolation boundary and reports failures.
func (c *Context) run(phase Phase, fn func() error) error {
	result := c.executor.Execute(c.base, func(context.Context) error { return fn() })
	if result.Error == nil {
		return nil
	}
	err := &ExecutionError{Plugin: c.plugin, Phase: phase, Err: result.Error}
	c.reporter.Report(err)
	return err
}

// close releases every tracked handle in reverse acquisition order. No new
// handle can be acquired once it starts, but cleanup callbacks may still read
// and replace content. After it returns no timer callback of this context
// will start and every capability call fails.
func (c *Context) close() int {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return 0
	}
	c.closing = true
	resources := c.resources
	c.resources = nil
	c.mu.Unlock()

	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		switch r.kind {
		case resourceTimer:
			r.timer.Stop()
		case resourceSubscription:
			_ = c.events.Unsubscribe(r.event, r.handle)
		case resourceCleanup:
			_ = c.run(PhaseCleanup, r.cleanup)
		}
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return len(resources)
}

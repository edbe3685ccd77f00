package content

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/field"
	"github.com/dshills/inkwell/internal/logging"
)

// ErrNotLoaded is returned by mutations attempted before Load.
var ErrNotLoaded = errors.New("content engine is not loaded")

// Publisher is the part of the event bus the engine drives.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

// SyncError reports a failed write to the persisted field.
type SyncError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync field %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// LogFields returns structured context for the diagnostics log.
func (e *SyncError) LogFields() map[string]any {
	return map[string]any{"field": e.Field}
}

// Engine owns the content snapshots and the dirty flag.
//
// Mutations and focus transitions must be driven from one goroutine (the
// editor loop). Queries are safe from any goroutine.
type Engine struct {
	mu       sync.RWMutex
	current  Snapshot
	previous Snapshot
	dirty    bool
	focused  bool
	loaded   bool

	bus      Publisher
	field    field.Field
	reporter logging.Reporter
	log      *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter sets the sink for field write failures.
func WithReporter(r logging.Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.log = l.WithComponent("content")
	}
}

// NewEngine creates an engine whose current and previous snapshots both hold
// initial. Call Load before any mutation.
func NewEngine(initial string, bus Publisher, f field.Field, opts ...Option) *Engine {
	snap := NewSnapshot(initial)
	e := &Engine{
		current:  snap,
		previous: snap,
		bus:      bus,
		field:    f,
		reporter: logging.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load mirrors the initial content into the field and publishes load.
// Subsequent calls do nothing.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.loaded {
		e.mu.Unlock()
		return nil
	}
	e.loaded = true
	e.mu.Unlock()

	syncErr := e.Sync()
	if err := e.bus.Publish(ctx, event.NewLoad()); err != nil {
		return err
	}
	return syncErr
}

// Input records a content-modifying user interaction.
func (e *Engine) Input(ctx context.Context, html string) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	e.current = NewSnapshot(html)
	e.dirty = true
	e.mu.Unlock()

	return e.afterMutation(ctx, html)
}

// SetContent replaces the content programmatically. The engine is Dirty
// exactly when html differs from the last committed content, so restoring
// the committed value returns it to Clean.
func (e *Engine) SetContent(ctx context.Context, html string) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	e.current = NewSnapshot(html)
	e.dirty = !e.current.Equal(e.previous)
	e.mu.Unlock()

	return e.afterMutation(ctx, html)
}

// Clear is SetContent("").
func (e *Engine) Clear(ctx context.Context) error {
	return e.SetContent(ctx, "")
}

func (e *Engine) afterMutation(ctx context.Context, html string) error {
	syncErr := e.Sync()
	if err := e.bus.Publish(ctx, event.NewInput(html)); err != nil {
		return err
	}
	return syncErr
}

// Focus records that the surface gained focus.
func (e *Engine) Focus(ctx context.Context) error {
	e.mu.Lock()
	e.focused = true
	e.mu.Unlock()

	return e.bus.Publish(ctx, event.NewFocus())
}

// Blur records that the surface lost focus. If the engine is Dirty the
// pending modification is committed with a change event first.
func (e *Engine) Blur(ctx context.Context) error {
	e.mu.Lock()
	e.focused = false
	commit := e.dirty
	var changeEvt event.Event
	if commit {
		changeEvt = event.NewChange(e.current.HTML(), e.previous.HTML())
		e.previous = e.current
		e.dirty = false
	}
	e.mu.Unlock()

	if commit {
		e.log.WithFields(map[string]any{"bytes": len(changeEvt.Content)}).Debug("committing change")
		if err := e.bus.Publish(ctx, changeEvt); err != nil {
			return err
		}
	}
	return e.bus.Publish(ctx, event.NewBlur())
}

// Sync writes the current content into the field. It never changes the
// dirty state. A failure is reported and returned as a *SyncError.
func (e *Engine) Sync() error {
	if e.field == nil {
		return nil
	}
	e.mu.RLock()
	html := e.current.HTML()
	e.mu.RUnlock()

	if err := e.field.Write(html); err != nil {
		syncErr := &SyncError{Field: e.field.Name(), Err: err}
		e.reporter.Report(syncErr)
		return syncErr
	}
	return nil
}

// Content returns the current snapshot.
func (e *Engine) Content() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Previous returns the snapshot as of the last committed change.
func (e *Engine) Previous() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.previous
}

// Dirty reports whether content changed since the last commit.
func (e *Engine) Dirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dirty
}

// State returns StateDirty or StateClean.
func (e *Engine) State() State {
	if e.Dirty() {
		return StateDirty
	}
	return StateClean
}

// Focused reports whether the surface currently has focus.
func (e *Engine) Focused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.focused
}

package plugin

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/event/dispatch"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/loop"
)

// DefaultRuntime is used when Register is called without WithRuntime.
const DefaultRuntime = "js"

// entry is the registry record of one plugin.
type entry struct {
	id          ID
	name        string
	description string
	source      string
	runtime     string

	state   State
	lastErr error
	busy    bool

	unit Unit
	ctx  *Context
}

func (e *entry) info() Info {
	info := Info{
		ID:          e.id,
		Name:        e.name,
		Description: e.description,
		Runtime:     e.runtime,
		State:       e.state,
		LastError:   e.lastErr,
	}
	if e.ctx != nil {
		info.Handles = e.ctx.Handles()
	}
	return info
}

// Transition describes a completed lifecycle change.
type Transition struct {
	Plugin ID
	From   State
	To     State
	Err    error
}

// Observer is notified after every lifecycle change. Observers run on the
// caller's goroutine and must not call back into the Host.
type Observer func(Transition)

// Host owns the plugin registry and every plugin's lifecycle.
type Host struct {
	mu        sync.Mutex
	plugins   map[ID]*entry
	order     []ID
	compilers map[string]Compiler

	doc      Document
	sched    loop.Scheduler
	events   Subscriber
	base     context.Context
	executor *dispatch.Executor
	reporter logging.Reporter
	log      *logging.Logger
	observer Observer
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithCompiler registers a runtime compiler.
func WithCompiler(c Compiler) HostOption {
	return func(h *Host) {
		h.compilers[c.Runtime()] = c
	}
}

// WithReporter sets the sink for plugin execution failures.
func WithReporter(r logging.Reporter) HostOption {
	return func(h *Host) {
		if r != nil {
			h.reporter = r
		}
	}
}

// WithLogger sets the host logger.
func WithLogger(l *logging.Logger) HostOption {
	return func(h *Host) {
		h.log = l.WithComponent("plugin")
	}
}

// WithExecutionTimeout bounds the context passed to plugin code. Runtimes
// enforce their own watchdogs in addition.
func WithExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executor = dispatch.NewExecutor(dispatch.WithTimeout(d))
	}
}

// WithEvents lets plugins subscribe to editor events through their Context.
func WithEvents(s Subscriber) HostOption {
	return func(h *Host) {
		h.events = s
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) HostOption {
	return func(h *Host) {
		h.observer = o
	}
}

// NewHost creates a host granting plugins access to doc and sched.
func NewHost(doc Document, sched loop.Scheduler, opts ...HostOption) *Host {
	h := &Host{
		plugins:   make(map[ID]*entry),
		compilers: make(map[string]Compiler),
		doc:       doc,
		sched:     sched,
		base:      context.Background(),
		executor:  dispatch.NewExecutor(),
		reporter:  logging.Discard,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterOption configures a single registration.
type RegisterOption func(*entry)

// WithRuntime selects the runtime the source is written for.
func WithRuntime(runtime string) RegisterOption {
	return func(e *entry) {
		e.runtime = runtime
	}
}

// Runtimes returns the names of the registered compilers, sorted.
func (h *Host) Runtimes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.compilers))
	for name := range h.compilers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Register stores a plugin. Its code is not executed until Enable.
func (h *Host) Register(name, description, source string, opts ...RegisterOption) (ID, error) {
	id := DeriveID(name)
	if id == "" {
		return "", fmt.Errorf("%w: name %q yields an empty id", ErrInvalidPlugin, name)
	}

	e := &entry{
		id:          id,
		name:        name,
		description: description,
		source:      source,
		runtime:     DefaultRuntime,
		state:       StateRegistered,
	}
	for _, opt := range opts {
		opt(e)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.compilers[e.runtime]; !ok {
		return "", fmt.Errorf("%w: %w %q", ErrInvalidPlugin, ErrUnknownRuntime, e.runtime)
	}
	if _, exists := h.plugins[id]; exists {
		return "", fmt.Errorf("plugin %q: %w", name, ErrDuplicateName)
	}
	for _, other := range h.plugins {
		if other.name == name {
			return "", fmt.Errorf("plugin %q: %w", name, ErrDuplicateName)
		}
	}

	h.plugins[id] = e
	h.order = append(h.order, id)
	h.log.WithFields(map[string]any{"plugin": string(id), "runtime": e.runtime}).Debug("plugin registered")
	return id, nil
}

// Check compiles a registered plugin without running it.
func (h *Host) Check(id ID) error {
	h.mu.Lock()
	e, ok := h.plugins[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", id, ErrUnknownPlugin)
	}
	compiler := h.compilers[e.runtime]
	source := e.source
	h.mu.Unlock()

	unit, err := h.compile(compiler, id, source)
	if err != nil {
		return err
	}
	if c, ok := unit.(Closer); ok {
		_ = c.Close()
	}
	return nil
}

// acquire marks the plugin busy when check accepts its current state.
func (h *Host) acquire(id ID, check func(*entry) error) (*entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.plugins[id]
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", id, ErrUnknownPlugin)
	}
	if e.busy {
		return nil, fmt.Errorf("plugin %q: %w", id, ErrPluginBusy)
	}
	if err := check(e); err != nil {
		return nil, err
	}
	e.busy = true
	return e, nil
}

// finish records the outcome of a transition and clears the busy flag.
func (h *Host) finish(e *entry, to State, unit Unit, ctx *Context, err error) {
	h.mu.Lock()
	from := e.state
	e.state = to
	e.unit = unit
	e.ctx = ctx
	e.lastErr = err
	e.busy = false
	observer := h.observer
	h.mu.Unlock()

	h.log.WithFields(map[string]any{
		"plugin": string(e.id),
		"from":   from.String(),
		"to":     to.String(),
	}).Debug("plugin transition")

	if observer != nil {
		observer(Transition{Plugin: e.id, From: from, To: to, Err: err})
	}
}

// Enable compiles the plugin and activates it against a fresh Context.
// If compilation or activation fails, every handle acquired so far is
// released, the plugin is left Disabled, and the *ExecutionError is both
// reported and returned.
func (h *Host) Enable(id ID) error {
	e, err := h.acquire(id, func(e *entry) error {
		if e.state == StateEnabled {
			return fmt.Errorf("plugin %q: %w", id, ErrAlreadyEnabled)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	compiler := h.compilers[e.runtime]
	h.mu.Unlock()

	unit, err := h.compile(compiler, id, e.source)
	if err != nil {
		h.reporter.Report(err)
		h.finish(e, StateDisabled, nil, nil, err)
		return err
	}

	ctx := newContext(h.base, id, h.doc, h.sched, h.events, h.executor, h.reporter, h.log)
	if err := ctx.run(PhaseActivate, func() error { return unit.Activate(ctx) }); err != nil {
		ctx.close()
		closeUnit(unit)
		h.finish(e, StateDisabled, nil, nil, err)
		return err
	}

	h.finish(e, StateEnabled, unit, ctx, nil)
	return nil
}

func (h *Host) compile(compiler Compiler, id ID, source string) (Unit, error) {
	var unit Unit
	result := h.executor.Execute(h.base, func(context.Context) error {
		var err error
		unit, err = compiler.Compile(id, source)
		return err
	})
	if result.Error != nil {
		return nil, &ExecutionError{Plugin: id, Phase: PhaseCompile, Err: result.Error}
	}
	return unit, nil
}

func closeUnit(unit Unit) {
	if c, ok := unit.(Closer); ok {
		_ = c.Close()
	}
}

// Disable runs the plugin's deactivate hook, releases every handle it
// acquired in reverse order, and discards its Context. When Disable returns
// no timer started by the plugin can fire.
func (h *Host) Disable(id ID) error {
	e, err := h.acquire(id, func(e *entry) error {
		if e.state != StateEnabled {
			return fmt.Errorf("plugin %q: %w", id, ErrAlreadyDisabled)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.finish(e, StateDisabled, nil, nil, h.teardown(e))
	return nil
}

// teardown must only be called on a busy, enabled entry. It returns the
// deactivate hook's failure, which has already been reported.
func (h *Host) teardown(e *entry) error {
	unit, ctx := e.unit, e.ctx
	err := ctx.run(PhaseDeactivate, unit.Deactivate)
	released := ctx.close()
	closeUnit(unit)
	h.log.WithFields(map[string]any{"plugin": string(e.id), "released": released}).Debug("plugin handles released")
	return err
}

// Unregister disables the plugin if needed and removes it from the registry.
func (h *Host) Unregister(id ID) error {
	e, err := h.acquire(id, func(*entry) error { return nil })
	if err != nil {
		return err
	}

	if e.state == StateEnabled {
		h.finish(e, StateDisabled, nil, nil, h.teardown(e))
	}

	h.mu.Lock()
	delete(h.plugins, id)
	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	return nil
}

// Get returns a view of the plugin.
func (h *Host) Get(id ID) (Info, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.plugins[id]
	if !ok {
		return Info{}, fmt.Errorf("plugin %q: %w", id, ErrUnknownPlugin)
	}
	return e.info(), nil
}

// List returns every plugin in registration order.
func (h *Host) List() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Info, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.plugins[id].info())
	}
	return out
}

// Close unregisters every plugin, newest first.
func (h *Host) Close() error {
	h.mu.Lock()
	ids := append([]ID(nil), h.order...)
	h.mu.Unlock()

	var firstErr error
	for i := len(ids) - 1; i >= 0; i-- {
		if err := h.Unregister(ids[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

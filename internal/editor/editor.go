package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/inkwell/internal/content"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/field"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/loop"
	"github.com/dshills/inkwell/internal/plugin"
	"github.com/dshills/inkwell/internal/plugin/js"
	"github.com/dshills/inkwell/internal/plugin/lua"
	"github.com/dshills/inkwell/internal/text"
)

// SubmitFunc is the host form's submission action. It receives the field
// value after a sync.
type SubmitFunc func(ctx context.Context, value string) error

// ErrNoSubmitter is returned by Submit when no SubmitFunc is configured.
var ErrNoSubmitter = errors.New("no submit action configured")

// Editor is the public facade over one document.
type Editor struct {
	bus    *event.Bus
	engine *content.Engine
	field  field.Field
	host   *plugin.Host
	diag   *logging.Diagnostics
	log    *logging.Logger
	submit SubmitFunc
}

// New creates an editor whose timers run on sched. Call Load once listeners
// are attached.
func New(sched loop.Scheduler, opts ...Option) (*Editor, error) {
	if sched == nil {
		return nil, errors.New("editor: scheduler is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.field == nil {
		mem, err := field.NewMemory(DefaultFieldName)
		if err != nil {
			return nil, err
		}
		o.field = mem
	}
	if o.compilers == nil {
		var jsOpts []js.Option
		var luaOpts []lua.Option
		if o.pluginTimeout > 0 {
			jsOpts = append(jsOpts, js.WithExecutionTimeout(o.pluginTimeout))
			luaOpts = append(luaOpts, lua.WithExecutionTimeout(o.pluginTimeout))
		}
		o.compilers = []plugin.Compiler{js.NewCompiler(jsOpts...), lua.NewCompiler(luaOpts...)}
	}

	diag := logging.NewDiagnostics(o.log, o.history)
	busOpts := []event.BusOption{event.WithReporter(diag), event.WithLogger(o.log)}
	if o.handlerTimeout > 0 {
		busOpts = append(busOpts, event.WithHandlerTimeout(o.handlerTimeout))
	}
	bus := event.NewBus(busOpts...)

	engine := content.NewEngine(o.initial, bus, o.field,
		content.WithReporter(diag),
		content.WithLogger(o.log),
	)

	hostOpts := []plugin.HostOption{
		plugin.WithReporter(diag),
		plugin.WithLogger(o.log),
		plugin.WithEvents(bus),
	}
	for _, c := range o.compilers {
		hostOpts = append(hostOpts, plugin.WithCompiler(c))
	}
	host := plugin.NewHost(&document{engine: engine}, sched, hostOpts...)

	return &Editor{
		bus:    bus,
		engine: engine,
		field:  o.field,
		host:   host,
		diag:   diag,
		log:    o.log.WithComponent("editor"),
		submit: o.submit,
	}, nil
}

// Load mirrors the initial content into the field and publishes load.
func (e *Editor) Load(ctx context.Context) error {
	return e.engine.Load(ctx)
}

// GetContent returns the current HTML.
func (e *Editor) GetContent() string {
	return e.engine.Content().HTML()
}

// GetText returns the plain text of the current content.
func (e *Editor) GetText() string {
	return e.engine.Content().Text()
}

// SetContent replaces the content programmatically.
func (e *Editor) SetContent(ctx context.Context, html string) error {
	return e.engine.SetContent(ctx, html)
}

// Input records a user edit that produced html.
func (e *Editor) Input(ctx context.Context, html string) error {
	return e.engine.Input(ctx, html)
}

// Clear empties the content.
func (e *Editor) Clear(ctx context.Context) error {
	return e.engine.Clear(ctx)
}

// Focus records that the surface gained focus.
func (e *Editor) Focus(ctx context.Context) error {
	return e.engine.Focus(ctx)
}

// Blur records that the surface lost focus, committing a pending change.
func (e *Editor) Blur(ctx context.Context) error {
	return e.engine.Blur(ctx)
}

// SyncContent writes the current content into the persisted field.
func (e *Editor) SyncContent() error {
	return e.engine.Sync()
}

// Submit syncs and hands the field value to the submission action.
func (e *Editor) Submit(ctx context.Context) error {
	if e.submit == nil {
		return ErrNoSubmitter
	}
	if err := e.engine.Sync(); err != nil {
		return err
	}
	if err := e.submit(ctx, e.field.Value()); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// FieldValue returns what the persisted field currently holds.
func (e *Editor) FieldValue() string {
	return e.field.Value()
}

// GetWordCount returns the number of words in the plain text.
func (e *Editor) GetWordCount() int {
	return text.WordCount(e.GetContent())
}

// GetCharCount returns the number of user-perceived characters.
func (e *Editor) GetCharCount() int {
	return text.CharCount(e.GetContent())
}

// IsDirty reports whether content changed since the last commit.
func (e *Editor) IsDirty() bool {
	return e.engine.Dirty()
}

// On subscribes fn to the named event.
func (e *Editor) On(name string, fn event.HandlerFunc) (event.Handle, error) {
	n, err := event.ParseName(name)
	if err != nil {
		return 0, err
	}
	return e.bus.Subscribe(n, fn)
}

// Off removes a subscription. Removing an absent handle is a no-op.
func (e *Editor) Off(name string, h event.Handle) error {
	n, err := event.ParseName(name)
	if err != nil {
		return err
	}
	return e.bus.Unsubscribe(n, h)
}

// RegisterPlugin stores plugin source without running it.
func (e *Editor) RegisterPlugin(name, description, source string, opts ...plugin.RegisterOption) (plugin.ID, error) {
	return e.host.Register(name, description, source, opts...)
}

// EnablePlugin activates a registered plugin.
func (e *Editor) EnablePlugin(id plugin.ID) error {
	return e.host.Enable(id)
}

// DisablePlugin deactivates a plugin. Disabling a plugin that is not
// enabled is a no-op.
func (e *Editor) DisablePlugin(id plugin.ID) error {
	if err := e.host.Disable(id); err != nil && !errors.Is(err, plugin.ErrAlreadyDisabled) {
		return err
	}
	return nil
}

// UnregisterPlugin disables and removes a plugin.
func (e *Editor) UnregisterPlugin(id plugin.ID) error {
	return e.host.Unregister(id)
}

// CheckPlugin compiles a registered plugin without running it.
func (e *Editor) CheckPlugin(id plugin.ID) error {
	return e.host.Check(id)
}

// Runtimes lists the plugin runtimes the editor can compile.
func (e *Editor) Runtimes() []string {
	return e.host.Runtimes()
}

// Plugins lists registered plugins in registration order.
func (e *Editor) Plugins() []plugin.Info {
	return e.host.List()
}

// Diagnostics returns the sink isolated failures are reported to.
func (e *Editor) Diagnostics() *logging.Diagnostics {
	return e.diag
}

// Close unregisters every plugin and drops every listener.
func (e *Editor) Close() error {
	err := e.host.Close()
	e.bus.Clear()
	e.log.Debug("editor closed")
	return err
}

// document is the plugin-facing view of the engine.
type document struct {
	engine *content.Engine
}

func (d *document) Content() string {
	return d.engine.Content().HTML()
}

func (d *document) Text() string {
	return d.engine.Content().Text()
}

func (d *document) SetContent(ctx context.Context, html string) error {
	return d.engine.SetContent(ctx, html)
}

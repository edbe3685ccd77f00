package editor

import (
	"time"

	"github.com/dshills/inkwell/internal/field"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/plugin"
)

// DefaultFieldName names the in-memory field used when none is configured.
const DefaultFieldName = "content"

type options struct {
	initial        string
	field          field.Field
	log            *logging.Logger
	submit         SubmitFunc
	compilers      []plugin.Compiler
	pluginTimeout  time.Duration
	handlerTimeout time.Duration
	history        int
}

// Option configures an Editor.
type Option func(*options)

// WithContent sets the initial HTML.
func WithContent(html string) Option {
	return func(o *options) {
		o.initial = html
	}
}

// WithField sets the persisted field content is mirrored into.
func WithField(f field.Field) Option {
	return func(o *options) {
		o.field = f
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithSubmit sets the host form's submission action.
func WithSubmit(fn SubmitFunc) Option {
	return func(o *options) {
		o.submit = fn
	}
}

// WithCompilers replaces the default js and lua runtimes.
func WithCompilers(c ...plugin.Compiler) Option {
	return func(o *options) {
		o.compilers = c
	}
}

// WithPluginTimeout sets the watchdog timeout of the default runtimes.
func WithPluginTimeout(d time.Duration) Option {
	return func(o *options) {
		o.pluginTimeout = d
	}
}

// WithHandlerTimeout bounds the context passed to event listeners.
func WithHandlerTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handlerTimeout = d
	}
}

// WithDiagnosticsHistory sets how many isolated failures are retained.
func WithDiagnosticsHistory(n int) Option {
	return func(o *options) {
		o.history = n
	}
}

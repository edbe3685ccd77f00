package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/dshills/inkwell/internal/plugin"
)

// Runtime is the runtime name plugins register with.
const Runtime = "js"

// DefaultExecutionTimeout bounds a single entry into script code.
const DefaultExecutionTimeout = 5 * time.Second

// Errors for JavaScript plugin execution.
var (
	// ErrRuntimeClosed is returned when calling into a closed runtime.
	ErrRuntimeClosed = errors.New("js runtime is closed")

	// ErrExecutionTimeout is returned when the watchdog interrupts a call.
	ErrExecutionTimeout = errors.New("js execution timeout")
)

// Compiler compiles JavaScript plugin sources. It implements plugin.Compiler.
type Compiler struct {
	timeout time.Duration
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithExecutionTimeout sets the watchdog timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		c.timeout = d
	}
}

// NewCompiler creates a JavaScript compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Runtime implements plugin.Compiler.
func (c *Compiler) Runtime() string {
	return Runtime
}

// Compile parses source into a program. No script code runs.
func (c *Compiler) Compile(id plugin.ID, source string) (plugin.Unit, error) {
	prog, err := goja.Compile(id.String(), source, false)
	if err != nil {
		return nil, err
	}
	return &unit{prog: prog, timeout: c.timeout}, nil
}

// unit is one compiled plugin. It owns a goja runtime from Activate until
// Close and is confined to the editor goroutine.
type unit struct {
	prog    *goja.Program
	timeout time.Duration

	vm           *goja.Runtime
	depth        int
	closed       bool
	closePending bool
}

// Activate runs the program's top level in a fresh runtime.
func (u *unit) Activate(ctx *plugin.Context) error {
	u.vm = goja.New()
	if err := u.bind(ctx); err != nil {
		return err
	}
	return u.call(func() error {
		_, err := u.vm.RunProgram(u.prog)
		return err
	})
}

// Deactivate calls the global deactivate function if the script defined one.
func (u *unit) Deactivate() error {
	if u.vm == nil || u.closed {
		return nil
	}
	fn, ok := goja.AssertFunction(u.vm.Get("deactivate"))
	if !ok {
		return nil
	}
	return u.invoke(fn)
}

// Close implements plugin.Closer.
func (u *unit) Close() error {
	if u.closed {
		return nil
	}
	if u.depth > 0 {
		u.closePending = true
		return nil
	}
	u.closed = true
	u.vm = nil
	return nil
}

func (u *unit) invoke(fn goja.Callable) error {
	return u.call(func() error {
		_, err := fn(goja.Undefined())
		return err
	})
}

// call runs fn with the watchdog armed for the outermost entry.
func (u *unit) call(fn func() error) error {
	if u.closed || u.closePending || u.vm == nil {
		return ErrRuntimeClosed
	}

	var dog *watchdog
	if u.depth == 0 && u.timeout > 0 {
		dog = startWatchdog(u.vm, u.timeout)
	}

	err := u.enter(fn)

	if dog != nil && dog.stop() {
		err = fmt.Errorf("%w after %s", ErrExecutionTimeout, u.timeout)
	}
	if u.depth == 0 && u.closePending {
		u.closePending = false
		u.closed = true
		u.vm = nil
	}
	return err
}

func (u *unit) enter(fn func() error) error {
	u.depth++
	defer func() { u.depth-- }()
	return fn()
}

// watchdog interrupts a runtime after a deadline.
type watchdog struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timer   *time.Timer
	done    bool
	tripped bool
}

func startWatchdog(vm *goja.Runtime, d time.Duration) *watchdog {
	w := &watchdog{vm: vm}
	w.timer = time.AfterFunc(d, w.trip)
	return w
}

func (w *watchdog) trip() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.tripped = true
	w.vm.Interrupt(ErrExecutionTimeout)
}

// stop disarms the watchdog and reports whether it interrupted the runtime.
func (w *watchdog) stop() bool {
	w.timer.Stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	if w.tripped {
		w.vm.ClearInterrupt()
	}
	return w.tripped
}

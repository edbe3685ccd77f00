package lua

import (
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/inkwell/internal/plugin"
)

// Runtime is the runtime name plugins register with.
const Runtime = "lua"

// Compiler compiles Lua plugin sources. It implements plugin.Compiler.
type Compiler struct {
	timeout time.Duration
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithExecutionTimeout sets the watchdog timeout for every entry into Lua.
// Zero disables the watchdog.
func WithExecutionTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		c.timeout = d
	}
}

// NewCompiler creates a Lua compiler.
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

// Compile parses source into a function prototype. No Lua code runs.
func (c *Compiler) Compile(id plugin.ID, source string) (plugin.Unit, error) {
	chunk, err := parse.Parse(strings.NewReader(source), id.String())
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	proto, err := lua.Compile(chunk, id.String())
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return &unit{proto: proto, timeout: c.timeout}, nil
}

// unit is one compiled Lua plugin. It owns a State from Activate to Close.
type unit struct {
	proto   *lua.FunctionProto
	timeout time.Duration
	state   *State
}

// Activate runs the chunk's top level against a fresh sandboxed state.
func (u *unit) Activate(ctx *plugin.Context) error {
	state, err := NewState(u.timeout)
	if err != nil {
		return err
	}
	u.state = state
	state.bindEditor(ctx)
	return state.Call(state.L.NewFunctionFromProto(u.proto))
}

// Deactivate calls the global deactivate function if the plugin defined one.
func (u *unit) Deactivate() error {
	if u.state == nil {
		return nil
	}
	fn := u.state.Global("deactivate")
	if fn == nil {
		return nil
	}
	return u.state.Call(fn)
}

// Close implements plugin.Closer.
func (u *unit) Close() error {
	if u.state == nil {
		return nil
	}
	err := u.state.Close()
	u.state = nil
	return err
}

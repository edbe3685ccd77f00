package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single entry into Lua code.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua LState for one plugin activation.
//
// An LState is not goroutine-safe. A State is confined to the editor
// goroutine, which is where the host and its scheduler call into it. Calls
// may nest (Lua code can trigger Go code that calls back into Lua); Close
// during a nested call is deferred until the outermost call returns.
type State struct {
	L *lua.LState

	timeout time.Duration
	depth   int

	closed       bool
	closePending bool
}

// NewState creates a sandboxed Lua state.
func NewState(timeout time.Duration) (*State, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}
	installSandbox(L)
	return &State{L: L, timeout: timeout}, nil
}

// openSafeLibraries opens only the base, table, string and math libraries.
// io, os, debug, package, channel and coroutine stay closed.
func openSafeLibraries(L *lua.LState) error {
	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}
	return nil
}

// Call invokes fn with a watchdog armed for the outermost call.
func (s *State) Call(fn *lua.LFunction, args ...lua.LValue) error {
	if s.closed || s.closePending {
		return ErrStateClosed
	}

	var watchdog context.Context
	var cancel context.CancelFunc
	if s.depth == 0 && s.timeout > 0 {
		watchdog, cancel = context.WithTimeout(context.Background(), s.timeout)
		s.L.SetContext(watchdog)
	}

	s.depth++
	err := s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	s.depth--

	if cancel != nil {
		s.L.RemoveContext()
		cancel()
		if errors.Is(watchdog.Err(), context.DeadlineExceeded) && err != nil {
			err = fmt.Errorf("%w after %s: %v", ErrExecutionTimeout, s.timeout, err)
		}
	}

	if s.depth == 0 && s.closePending {
		s.closeNow()
	}
	return err
}

// Global returns a global function, or nil if name is not a function.
func (s *State) Global(name string) *lua.LFunction {
	if s.closed {
		return nil
	}
	fn, _ := s.L.GetGlobal(name).(*lua.LFunction)
	return fn
}

// Close releases the LState.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	if s.depth > 0 {
		s.closePending = true
		return nil
	}
	s.closeNow()
	return nil
}

func (s *State) closeNow() {
	s.L.Close()
	s.closed = true
	s.closePending = false
}

// IsClosed reports whether the LState has been released.
func (s *State) IsClosed() bool {
	return s.closed
}

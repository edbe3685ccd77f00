package lua

import "errors"

// Errors for Lua plugin execution.
var (
	// ErrStateClosed is returned when calling into a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when the watchdog interrupts a call.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)

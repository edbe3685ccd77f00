package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrDuplicateName is returned when a plugin with the same name exists.
	ErrDuplicateName = errors.New("plugin name already registered")

	// ErrUnknownPlugin is returned for an ID that is not registered.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrAlreadyEnabled is returned when enabling an enabled plugin.
	ErrAlreadyEnabled = errors.New("plugin is already enabled")

	// ErrAlreadyDisabled is returned when disabling a plugin that is not enabled.
	ErrAlreadyDisabled = errors.New("plugin is already disabled")

	// ErrInvalidPlugin is returned when registration input is unusable.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrUnknownRuntime is returned when no compiler handles a runtime.
	ErrUnknownRuntime = errors.New("unknown plugin runtime")

	// ErrContextClosed is returned by capability calls after teardown.
	ErrContextClosed = errors.New("plugin context is closed")

	// ErrPluginBusy is returned when a lifecycle call re-enters a plugin
	// that is in the middle of another transition.
	ErrPluginBusy = errors.New("plugin lifecycle transition in progress")
)

// Phase names the point at which plugin code failed.
type Phase string

// Execution phases.
const (
	PhaseCompile    Phase = "compile"
	PhaseActivate   Phase = "activate"
	PhaseTimer      Phase = "timer"
	PhaseEvent      Phase = "event"
	PhaseCleanup    Phase = "cleanup"
	PhaseDeactivate Phase = "deactivate"
)

// ExecutionError wraps an uncaught failure inside plugin code.
type ExecutionError struct {
	Plugin ID
	Phase  Phase
	Err    error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// LogFields returns structured context for the diagnostics log.
func (e *ExecutionError) LogFields() map[string]any {
	return map[string]any{"plugin": string(e.Plugin), "phase": string(e.Phase)}
}

package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidEventName is returned for names outside the fixed event set.
	ErrInvalidEventName = errors.New("invalid event name")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

func invalidName(name string) error {
	return fmt.Errorf("%w: %q", ErrInvalidEventName, name)
}

// HandlerError wraps a failure raised by an event handler.
type HandlerError struct {
	// Event is the event being dispatched.
	Event Name

	// Handle identifies the failing registration.
	Handle Handle

	// Panicked is true if the handler panicked rather than returned an error.
	Panicked bool

	// Stack is the stack trace when Panicked is true.
	Stack []byte

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	verb := "failed"
	if e.Panicked {
		verb = "panicked"
	}
	return fmt.Sprintf("handler %s for %s %s: %v", e.Handle, e.Event, verb, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// LogFields returns structured context for the diagnostics log.
func (e *HandlerError) LogFields() map[string]any {
	return map[string]any{
		"event":        string(e.Event),
		"subscription": e.Handle.String(),
		"panicked":     e.Panicked,
	}
}

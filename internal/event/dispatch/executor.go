package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Func is a unit of work run by an Executor.
type Func func(ctx context.Context) error

// Result represents the outcome of one execution.
type Result struct {
	// Error is the error returned by the callback, or a *PanicError.
	Error error

	// Panicked is true if the callback panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte
}

// PanicError is the Result.Error of a callback that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Executor runs callbacks with panic recovery and an optional timeout.
type Executor struct {
	timeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds the context handed to every callback.
// The callback must observe ctx for this to have any effect.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn and returns its Result. It never panics. fn runs even if
// ctx is already done; observing ctx is up to fn.
func (e *Executor) Execute(ctx context.Context, fn Func) (result Result) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack
			result.Error = &PanicError{Value: r, Stack: stack}
		}
	}()

	result.Error = fn(ctx)
	return result
}

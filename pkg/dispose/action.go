package dispose

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// Action undoes exactly one registration. It takes no arguments and returns
// nothing; failures surface as panics, which the group helpers recover.
type Action func()

// Noop is the Action handed out when a registration could not be performed.
func Noop() {}

var (
	// ErrRegistration classifies failures raised while attaching a listener.
	ErrRegistration = errors.New("registration failed")
	// ErrDeregistration classifies failures raised by a deregistration action.
	ErrDeregistration = errors.New("deregistration failed")
)

// PanicError carries a value recovered from a panicking registration or
// deregistration.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the recovered value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Once wraps a so that only its first invocation has an effect. The package
// never applies it implicitly.
func Once(a Action) Action {
	if a == nil {
		return Noop
	}
	var once sync.Once
	return func() { once.Do(a) }
}

// Logged adapts an error-returning detach call. A non-nil error is raised as
// a deregistration failure, so the collector or InvokeAll running the Action
// logs it and reports it to its observer as an error rather than a panic.
// Invoked directly, the Action panics with that error.
func Logged(fn func() error) Action {
	if fn == nil {
		return Noop
	}
	return func() {
		if err := fn(); err != nil {
			panic(detachError{err: err})
		}
	}
}

// detachError marks a panic raised by Logged.
type detachError struct{ err error }

func (d detachError) Error() string { return d.err.Error() }

func (d detachError) Unwrap() error { return d.err }

// deregistrationError classifies a value recovered from a failing Action.
func deregistrationError(v any) error {
	if d, ok := v.(detachError); ok {
		return fmt.Errorf("%w: %w", ErrDeregistration, d.err)
	}
	return fmt.Errorf("%w: %w", ErrDeregistration, newPanicError(v))
}

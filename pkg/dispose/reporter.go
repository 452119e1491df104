package dispose

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Observer receives lifecycle failures and flush statistics. Implementations
// must be safe for concurrent use.
type Observer interface {
	RegistrationFailed(err error)
	DeregistrationFailed(err error)
	Flushed(actions int, elapsed time.Duration)
}

type observerBox struct{ o Observer }

var (
	packageLogger   atomic.Pointer[zap.Logger]
	packageObserver atomic.Pointer[observerBox]
)

// SetLogger replaces the logger used by the free functions and by collectors
// built without WithLogger. Passing nil restores the default, zap.L().
func SetLogger(l *zap.Logger) {
	packageLogger.Store(l)
}

// SetObserver replaces the observer used by the free functions and by
// collectors built without WithObserver. Passing nil disables reporting.
func SetObserver(o Observer) {
	if o == nil {
		packageObserver.Store(nil)
		return
	}
	packageObserver.Store(&observerBox{o: o})
}

// reporter routes failures to a logger and an observer. The zero value uses
// the package-level defaults, resolved on every call.
type reporter struct {
	collector string
	logger    *zap.Logger
	observer  Observer
}

func (r reporter) log() *zap.Logger {
	l := r.logger
	if l == nil {
		l = packageLogger.Load()
	}
	if l == nil {
		l = zap.L()
	}
	if r.collector != "" {
		l = l.With(zap.String("collector", r.collector))
	}
	return l
}

func (r reporter) obs() Observer {
	if r.observer != nil {
		return r.observer
	}
	if box := packageObserver.Load(); box != nil {
		return box.o
	}
	return nil
}

func (r reporter) registrationFailed(err error) {
	r.log().Error("registration failed; substituting no-op deregistration", zap.Error(err))
	if o := r.obs(); o != nil {
		o.RegistrationFailed(err)
	}
}

func (r reporter) deregistrationFailed(err error, fields ...zap.Field) {
	r.log().Error("deregistration failed", append(fields, zap.Error(err))...)
	if o := r.obs(); o != nil {
		o.DeregistrationFailed(err)
	}
}

func (r reporter) flushed(n int, elapsed time.Duration) {
	r.log().Debug("subscriptions flushed", zap.Int("actions", n), zap.Duration("elapsed", elapsed))
	if o := r.obs(); o != nil {
		o.Flushed(n, elapsed)
	}
}

// guard runs register and degrades any error or panic to Noop.
func (r reporter) guard(register func() (Action, error)) (action Action) {
	defer func() {
		if v := recover(); v != nil {
			r.registrationFailed(fmt.Errorf("%w: %w", ErrRegistration, newPanicError(v)))
			action = Noop
		}
	}()
	a, err := register()
	if err != nil {
		r.registrationFailed(fmt.Errorf("%w: %w", ErrRegistration, err))
		return Noop
	}
	if a == nil {
		return Noop
	}
	return a
}

func (r reporter) invoke(i int, a Action) {
	defer func() {
		if v := recover(); v != nil {
			r.deregistrationFailed(deregistrationError(v), zap.Int("index", i))
		}
	}()
	a()
}

func (r reporter) invokeAll(actions []Action) {
	for i, a := range actions {
		if a == nil {
			continue
		}
		r.invoke(i, a)
	}
}

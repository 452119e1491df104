// Package emitter provides in-process event sources: a Node-style Emitter and
// a DOM-style EventTarget. Both satisfy the capability interfaces in package
// dispose and deliver synchronously on the caller's goroutine.
package emitter

import "sync"

// Listener receives payloads for the events it is registered on.
// Implementations must be comparable (pointer types are the usual choice)
// because detaching matches listeners by identity.
type Listener interface {
	Notify(event string, payload any)
}

// Func adapts a plain function to Listener.
type Func struct {
	fn func(event string, payload any)
}

// NewFunc wraps fn. Keep the returned value: it is the identity used to
// detach, and two calls with the same fn yield distinct listeners.
func NewFunc(fn func(event string, payload any)) Listener {
	return &Func{fn: fn}
}

// Notify calls the wrapped function.
func (f *Func) Notify(event string, payload any) {
	if f.fn != nil {
		f.fn(event, payload)
	}
}

// Emitter keeps an ordered listener list per event name. The same listener
// may be added more than once and is then called once per registration.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New returns an empty Emitter.
func New() *Emitter {
	return &Emitter{listeners: make(map[string][]Listener)}
}

// AddListener appends l to the listeners of event.
func (e *Emitter) AddListener(event string, l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], l)
}

// RemoveListener detaches the most recently added registration of l for
// event. Unknown listeners are ignored.
func (e *Emitter) RemoveListener(event string, l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[event]
	for i := len(ls) - 1; i >= 0; i-- {
		if ls[i] == l {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.listeners, event)
		return
	}
	e.listeners[event] = ls
}

// Emit calls every listener registered for event at the time of the call and
// returns how many were called. Listeners run outside the lock and may add or
// remove listeners.
func (e *Emitter) Emit(event string, payload any) int {
	e.mu.RLock()
	ls := append([]Listener(nil), e.listeners[event]...)
	e.mu.RUnlock()
	for _, l := range ls {
		l.Notify(event, payload)
	}
	return len(ls)
}

// ListenerCount reports the registrations for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}

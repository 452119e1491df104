package emitter

import "sync"

// Options qualifies an EventTarget registration. Capture takes part in the
// registration's identity; Passive and Once only affect delivery.
type Options struct {
	Capture bool
	Passive bool
	Once    bool
}

type targetEntry struct {
	listener Listener
	opts     Options
}

// EventTarget is a DOM-style target: registering the same (event, listener,
// capture) twice has no effect, and Once registrations are removed before
// their first delivery.
type EventTarget struct {
	mu      sync.Mutex
	entries map[string][]targetEntry
}

// NewEventTarget returns an empty EventTarget.
func NewEventTarget() *EventTarget {
	return &EventTarget{entries: make(map[string][]targetEntry)}
}

// AddEventListener registers l for event unless an identical registration
// exists.
func (t *EventTarget) AddEventListener(event string, l Listener, opts Options) {
	if l == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexLocked(event, l, opts.Capture) >= 0 {
		return
	}
	t.entries[event] = append(t.entries[event], targetEntry{listener: l, opts: opts})
}

// RemoveEventListener removes the registration matching (event, l,
// opts.Capture).
func (t *EventTarget) RemoveEventListener(event string, l Listener, opts Options) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(event, l, opts.Capture)
}

// DispatchEvent delivers payload to the listeners registered for event when
// the call starts and returns how many were called.
func (t *EventTarget) DispatchEvent(event string, payload any) int {
	t.mu.Lock()
	entries := append([]targetEntry(nil), t.entries[event]...)
	for _, e := range entries {
		if e.opts.Once {
			t.removeLocked(event, e.listener, e.opts.Capture)
		}
	}
	t.mu.Unlock()

	for _, e := range entries {
		e.listener.Notify(event, payload)
	}
	return len(entries)
}

// ListenerCount reports the registrations for event.
func (t *EventTarget) ListenerCount(event string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries[event])
}

func (t *EventTarget) indexLocked(event string, l Listener, capture bool) int {
	for i, e := range t.entries[event] {
		if e.listener == l && e.opts.Capture == capture {
			return i
		}
	}
	return -1
}

func (t *EventTarget) removeLocked(event string, l Listener, capture bool) {
	i := t.indexLocked(event, l, capture)
	if i < 0 {
		return
	}
	es := t.entries[event]
	es = append(es[:i:i], es[i+1:]...)
	if len(es) == 0 {
		delete(t.entries, event)
		return
	}
	t.entries[event] = es
}

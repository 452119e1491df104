package dispose

// Emitter is the capability of a Node-style event emitter. Listeners are
// detached by identity, hence the comparable constraint.
type Emitter[L comparable] interface {
	AddListener(event string, listener L)
	RemoveListener(event string, listener L)
}

// Target is the capability of a DOM-style event target whose registrations
// are qualified by an options value.
type Target[L comparable, O any] interface {
	AddEventListener(event string, listener L, opts O)
	RemoveEventListener(event string, listener L, opts O)
}

// Guard runs register immediately and returns the Action it produced. If
// register returns an error or panics, the failure is logged and Noop is
// returned, so callers never need to check the result.
func Guard(register func() (Action, error)) Action {
	return reporter{}.guard(register)
}

// OnEmitter attaches listener to src for event and returns the Action that
// detaches the same (src, event, listener) triple.
func OnEmitter[L comparable](src Emitter[L], event string, listener L) Action {
	src.AddListener(event, listener)
	return func() { src.RemoveListener(event, listener) }
}

// OnTarget attaches listener to src for event with opts. The same opts value
// is passed back on detach because some option shapes take part in the
// registration's identity.
func OnTarget[L comparable, O any](src Target[L, O], event string, listener L, opts O) Action {
	src.AddEventListener(event, listener, opts)
	return func() { src.RemoveEventListener(event, listener, opts) }
}

// InvokeAll invokes every action in order. A panic from one action is
// recovered and logged, and the rest still run. InvokeAll never panics.
func InvokeAll(actions ...Action) {
	reporter{}.invokeAll(actions)
}

// Cleanup returns an Action that calls InvokeAll over a snapshot of actions
// taken now. Invoking it twice invokes every element twice.
func Cleanup(actions ...Action) Action {
	snapshot := append([]Action(nil), actions...)
	return func() { InvokeAll(snapshot...) }
}

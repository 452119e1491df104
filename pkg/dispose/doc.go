// Package dispose turns heterogeneous "register a callback, later deregister it"
// APIs into a single value: an Action that undoes one registration.
//
// The free functions (Guard, OnEmitter, OnTarget, Timeout, Interval) attach a
// listener and hand back its Action. InvokeAll and Cleanup run groups of actions
// with failure isolation: a panicking action is recovered and logged, and the
// remaining actions still run. Collector accumulates actions in registration
// order and releases them all with FlushAll.
//
// Failures never escape the teardown path. They are written to the zap logger
// (zap.L() unless replaced with SetLogger or WithLogger) and reported to the
// configured Observer. Logged turns an error-returning detach call into an
// Action whose error is reported by whichever collector runs it.
package dispose

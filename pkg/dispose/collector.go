package dispose

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collector accumulates deregistration actions and releases them together.
// Registration helpers append the resulting Action and also return it, so a
// single subscription can still be dropped early. A Collector has no closed
// state: it can be reused after FlushAll. Nothing is flushed automatically
// when it becomes unreachable.
type Collector struct {
	id    uuid.UUID
	name  string
	list  *ActionList
	rep   reporter
	clock clock.Clock
}

// Option configures a Collector.
type Option func(*Collector)

// WithInitial seeds the collector's own list with a copy of actions.
func WithInitial(actions ...Action) Option {
	return func(c *Collector) {
		c.list = NewActionList(actions...)
	}
}

// WithList makes the collector append to and drain a list it shares with
// other holders.
func WithList(l *ActionList) Option {
	return func(c *Collector) {
		if l != nil {
			c.list = l
		}
	}
}

// WithName labels the collector in log output.
func WithName(name string) Option {
	return func(c *Collector) {
		c.name = name
	}
}

// WithLogger overrides the package logger for this collector.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) {
		c.rep.logger = l
	}
}

// WithObserver overrides the package observer for this collector.
func WithObserver(o Observer) Option {
	return func(c *Collector) {
		c.rep.observer = o
	}
}

// WithClock sets the clock used by Timeout and Interval.
func WithClock(clk clock.Clock) Option {
	return func(c *Collector) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// NewCollector returns an empty Collector unless WithInitial or WithList is
// given.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		id:    uuid.Must(uuid.NewV7()),
		clock: systemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.list == nil {
		c.list = NewActionList()
	}
	if c.name == "" {
		c.name = c.id.String()
	}
	c.rep.collector = c.name
	return c
}

// ID returns the collector's unique identifier.
func (c *Collector) ID() uuid.UUID { return c.id }

// Name returns the collector's label; it defaults to the ID.
func (c *Collector) Name() string { return c.name }

// Len reports how many actions are waiting for the next flush.
func (c *Collector) Len() int { return c.list.Len() }

// Subscribe is Guard followed by Push of the resulting Action.
func (c *Collector) Subscribe(register func() (Action, error)) Action {
	return c.add(c.rep.guard(register))
}

// Timeout is the collecting form of TimeoutOn using the collector's clock.
func (c *Collector) Timeout(fn func(), delay time.Duration) Action {
	return c.add(TimeoutOn(c.clock, fn, delay))
}

// Interval is the collecting form of IntervalOn using the collector's clock.
func (c *Collector) Interval(fn func(), delay time.Duration) Action {
	return c.add(IntervalOn(c.clock, fn, delay))
}

// Push appends an Action obtained elsewhere. Nil is ignored.
func (c *Collector) Push(a Action) {
	c.list.Append(a)
}

// FlushAll invokes every pending action, oldest first, with the same failure
// isolation as InvokeAll, and leaves the list empty. The list is drained in
// one critical section before any action runs, so an action appended
// concurrently lands either in this flush or, whole, in the next one. Actions
// run outside the lock and may call back into the collector.
func (c *Collector) FlushAll() {
	start := c.clock.Now()
	actions := c.list.drain()
	c.rep.invokeAll(actions)
	c.rep.flushed(len(actions), c.clock.Since(start))
}

// Cleanup returns a new Action that flushes this collector's live list when
// invoked.
func (c *Collector) Cleanup() Action {
	return func() { c.FlushAll() }
}

func (c *Collector) add(a Action) Action {
	c.list.Append(a)
	return a
}

// SubscribeEvent is OnEmitter whose Action is also pushed onto c. Go methods
// cannot take type parameters, hence the function form.
func SubscribeEvent[L comparable](c *Collector, src Emitter[L], event string, listener L) Action {
	return c.add(OnEmitter(src, event, listener))
}

// SubscribeTarget is OnTarget whose Action is also pushed onto c.
func SubscribeTarget[L comparable, O any](c *Collector, src Target[L, O], event string, listener L, opts O) Action {
	return c.add(OnTarget(src, event, listener, opts))
}

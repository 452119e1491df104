package dispose

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// minInterval is the shortest repeating period; shorter delays are clamped.
const minInterval = time.Millisecond

var systemClock = clock.New()

// Timeout schedules fn once after delay on the wall clock. A negative delay
// is treated as zero. The returned Action cancels fn if it has not fired yet;
// after it fired, the Action does nothing.
func Timeout(fn func(), delay time.Duration) Action {
	return TimeoutOn(systemClock, fn, delay)
}

// TimeoutOn is Timeout on an explicit clock.
func TimeoutOn(clk clock.Clock, fn func(), delay time.Duration) Action {
	if fn == nil {
		return Noop
	}
	if delay < 0 {
		delay = 0
	}
	t := clk.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// Interval schedules fn every delay on the wall clock until the returned
// Action is invoked. The Action does not wait for fn: an invocation already
// running, or a tick already past its stop check, may still finish after the
// Action returns. No tick delivered after that starts fn. fn may invoke the
// Action itself.
func Interval(fn func(), delay time.Duration) Action {
	return IntervalOn(systemClock, fn, delay)
}

// IntervalOn is Interval on an explicit clock.
func IntervalOn(clk clock.Clock, fn func(), delay time.Duration) Action {
	if fn == nil {
		return Noop
	}
	if delay < minInterval {
		delay = minInterval
	}
	ticker := clk.Ticker(delay)
	done := make(chan struct{})
	var stopped atomic.Bool
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if stopped.Load() {
					return
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			ticker.Stop()
			close(done)
		})
	}
}

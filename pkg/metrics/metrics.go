// Package metrics exposes Prometheus collectors for subscription lifecycle
// failures and flushes. Observer plugs into dispose.SetObserver or
// dispose.WithObserver.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/sources/promreg"
)

// Observer counts registration and deregistration failures and records flush
// sizes and durations.
type Observer struct {
	registrationFailures   prometheus.Counter
	deregistrationFailures *prometheus.CounterVec
	flushes                prometheus.Counter
	flushedActions         prometheus.Counter
	flushDuration          prometheus.Histogram

	unregister dispose.Action
}

// NewObserver registers the collectors against reg, or the default
// registerer when reg is nil.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		registrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispose_registration_failures_total",
			Help: "Registrations that failed and were replaced by a no-op deregistration.",
		}),
		deregistrationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispose_deregistration_failures_total",
			Help: "Deregistration actions that failed, partitioned by failure kind.",
		}, []string{"kind"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispose_flushes_total",
			Help: "Collector flushes performed.",
		}),
		flushedActions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispose_flushed_actions_total",
			Help: "Deregistration actions invoked by collector flushes.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispose_flush_duration_seconds",
			Help:    "Wall time spent invoking a collector's actions.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	var unregister []dispose.Action
	for _, c := range []prometheus.Collector{
		o.registrationFailures,
		o.deregistrationFailures,
		o.flushes,
		o.flushedActions,
		o.flushDuration,
	} {
		off, err := promreg.Register(reg, c)
		if err != nil {
			dispose.InvokeAll(unregister...)
			return nil, fmt.Errorf("register lifecycle collector: %w", err)
		}
		unregister = append(unregister, off)
	}
	o.unregister = dispose.Cleanup(unregister...)
	return o, nil
}

// RegistrationFailed implements dispose.Observer.
func (o *Observer) RegistrationFailed(error) {
	o.registrationFailures.Inc()
}

// DeregistrationFailed implements dispose.Observer.
func (o *Observer) DeregistrationFailed(err error) {
	o.deregistrationFailures.WithLabelValues(failureKind(err)).Inc()
}

// Flushed implements dispose.Observer.
func (o *Observer) Flushed(actions int, elapsed time.Duration) {
	o.flushes.Inc()
	o.flushedActions.Add(float64(actions))
	o.flushDuration.Observe(elapsed.Seconds())
}

// Unregister returns the action that removes every collector from the
// registerer it was built with.
func (o *Observer) Unregister() dispose.Action {
	return o.unregister
}

func failureKind(err error) string {
	var pe *dispose.PanicError
	if errors.As(err, &pe) {
		return "panic"
	}
	return "error"
}

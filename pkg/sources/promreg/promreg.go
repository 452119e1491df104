// Package promreg maps Prometheus collector registration onto dispose
// actions.
package promreg

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

// ErrNotRegistered is reported when the collector was already gone at
// deregistration time.
var ErrNotRegistered = errors.New("collector not registered")

// Register registers c with reg (the default registerer when nil) and returns
// the action that unregisters it.
func Register(reg prometheus.Registerer, c prometheus.Collector) (dispose.Action, error) {
	if c == nil {
		return nil, errors.New("register collector: nil collector")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}
	return dispose.Logged(func() error {
		if !reg.Unregister(c) {
			return ErrNotRegistered
		}
		return nil
	}), nil
}

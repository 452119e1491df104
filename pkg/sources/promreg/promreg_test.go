package promreg

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

func newCounter() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promreg_test_events_total",
		Help: "Test counter.",
	})
}

func TestRegisterAndUnregister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := newCounter()
	off, err := Register(reg, counter)
	require.NoError(t, err)

	counter.Inc()
	count, err := testutil.GatherAndCount(reg, "promreg_test_events_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	off()
	count, err = testutil.GatherAndCount(reg, "promreg_test_events_total")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	_, err = Register(reg, newCounter())
	require.NoError(t, err)
}

func TestRegisterDuplicateFailsThroughGuard(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := Register(reg, newCounter())
	require.NoError(t, err)

	_, err = Register(reg, newCounter())
	require.Error(t, err)

	c := dispose.NewCollector()
	off := c.Subscribe(func() (dispose.Action, error) { return Register(reg, newCounter()) })
	require.NotPanics(t, func() { off() })
}

func TestUnregisterTwiceIsReported(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	off, err := Register(reg, newCounter())
	require.NoError(t, err)
	off()
	require.PanicsWithError(t, ErrNotRegistered.Error(), func() { off() })
	require.NotPanics(t, func() { dispose.InvokeAll(off) })
}

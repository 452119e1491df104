// Package metrics exposes Prometheus collectors for the eventtap HTTP API.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/sources/promreg"
)

// HTTP records request counts and latencies per route.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers the HTTP collectors on reg. The returned action
// unregisters them.
func NewHTTP(reg prometheus.Registerer) (*HTTP, dispose.Action, error) {
	h := &HTTP{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		),
	}

	offRequests, err := promreg.Register(reg, h.requests)
	if err != nil {
		return nil, nil, fmt.Errorf("register http_requests_total: %w", err)
	}
	offDuration, err := promreg.Register(reg, h.duration)
	if err != nil {
		offRequests()
		return nil, nil, fmt.Errorf("register http_request_duration_seconds: %w", err)
	}
	return h, dispose.Cleanup(offRequests, offDuration), nil
}

// Observe records one completed request.
func (h *HTTP) Observe(method, route string, code int, elapsed time.Duration) {
	h.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	h.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func (h *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.Observe(r.Method, route, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

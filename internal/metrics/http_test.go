package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	h, unregister, err := NewHTTP(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}
	defer unregister()

	r := chi.NewRouter()
	r.Use(h.Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/test", "/notfound"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(h.requests.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("expected one GET 200, got %f", val)
	}
	if val := testutil.ToFloat64(h.requests.WithLabelValues("GET", "404")); val != 1 {
		t.Errorf("expected one GET 404, got %f", val)
	}
	if val := testutil.CollectAndCount(h.duration); val != 2 {
		t.Errorf("expected two route series, got %d", val)
	}
}

func TestNewHTTPUnregister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, unregister, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}
	if _, _, err := NewHTTP(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	unregister()
	if _, _, err := NewHTTP(reg); err != nil {
		t.Fatalf("expected registration after unregister, got %v", err)
	}
}

package collyhook_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/sources/collyhook"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Prices</h1><p class="item">milk</p></body></html>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHooksStopAfterFlush(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	c := colly.NewCollector(colly.AllowURLRevisit())

	var headings, responses int
	hooks := dispose.NewCollector(dispose.WithLogger(zap.NewNop()))
	hooks.Subscribe(func() (dispose.Action, error) {
		return collyhook.OnHTML(c, "h1", func(e *colly.HTMLElement) {
			assert.Equal(t, "Prices", e.Text)
			headings++
		})
	})
	hooks.Subscribe(func() (dispose.Action, error) {
		return collyhook.OnResponse(c, func(*colly.Response) { responses++ })
	})

	require.NoError(t, c.Visit(srv.URL+"/"))
	assert.Equal(t, 1, headings)
	assert.Equal(t, 1, responses)

	hooks.FlushAll()
	require.NoError(t, c.Visit(srv.URL+"/"))
	assert.Equal(t, 1, headings)
	assert.Equal(t, 1, responses)
}

func TestOnErrorGate(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	c := colly.NewCollector(colly.AllowURLRevisit())

	var failures int
	off, err := collyhook.OnError(c, func(*colly.Response, error) { failures++ })
	require.NoError(t, err)

	require.Error(t, c.Visit(srv.URL+"/missing"))
	assert.Equal(t, 1, failures)

	off()
	require.Error(t, c.Visit(srv.URL+"/missing"))
	assert.Equal(t, 1, failures)
}

func TestRejectsMissingArguments(t *testing.T) {
	t.Parallel()

	c := colly.NewCollector()
	_, err := collyhook.OnHTML(nil, "h1", func(*colly.HTMLElement) {})
	require.Error(t, err)
	_, err = collyhook.OnHTML(c, "", func(*colly.HTMLElement) {})
	require.Error(t, err)
	_, err = collyhook.OnXML(c, "//h1", nil)
	require.Error(t, err)
	_, err = collyhook.OnResponse(c, nil)
	require.Error(t, err)
}

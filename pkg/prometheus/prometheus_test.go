package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	c, err := New(&Config{Namespace: "unit"}, nil)
	require.NoError(t, err)
	defer c.Close()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Namespace: c.Namespace(), Name: "things_total", Help: "things"})
	require.NoError(t, c.Registry().Register(counter))
	counter.Inc()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "unit_things_total 1")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Namespace = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.HTTPServer.Enabled = true
	cfg.HTTPServer.Addr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestCloseTwice(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
}

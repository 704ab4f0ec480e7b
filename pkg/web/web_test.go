package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/metrics"
)

type recordingReporter struct {
	panics int
}

func (r *recordingReporter) CaptureError(context.Context, error, map[string]string) {}
func (r *recordingReporter) CapturePanic(context.Context, any)                      { r.panics++ }
func (r *recordingReporter) Close() error                                           { return nil }

func newTestServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Mode = gin.TestMode
	s, err := NewServer(cfg, logger.NewNoop(), opts...)
	require.NoError(t, err)
	return s
}

func TestSuccessAndErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	s.Router().GET("/ok", func(c *gin.Context) { Success(c, gin.H{"n": 1}) })
	s.Router().GET("/bad", func(c *gin.Context) {
		Error(c, http.StatusBadRequest, errors.CodeInvalidParams, "nope")
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "ok", resp.Message)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.CodeInvalidParams, resp.Code)
}

func TestRecoveryReportsPanic(t *testing.T) {
	rep := &recordingReporter{}
	s := newTestServer(t, nil, WithReporter(rep))
	s.Router().GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, rep.panics)
}

func TestRateLimitRejects(t *testing.T) {
	s := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxLimiters: 10}})
	s.Router().GET("/x", func(c *gin.Context) { Success(c, nil) })
	s.Router().GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) int {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("/x"))
	assert.Equal(t, http.StatusTooManyRequests, do("/x"))
	assert.Equal(t, http.StatusOK, do("/health"))
}

func TestMetricsAndParams(t *testing.T) {
	m := metrics.New("test")
	s := newTestServer(t, nil, WithMetrics(m))
	s.Router().GET("/players/:id", func(c *gin.Context) {
		id, ok := ParamInt64(c, "id")
		if !ok {
			return
		}
		limit, ok := QueryInt(c, "limit", 20)
		if !ok {
			return
		}
		Success(c, gin.H{"id": id, "limit": limit})
	})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players/7?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"limit":5}`, mustData(t, w.Body.Bytes()))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players/7?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &Config{CORS: CORSConfig{AllowOrigins: []string{"https://admin.example.com"}}})
	s.Router().GET("/x", func(c *gin.Context) { Success(c, nil) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Mode = "weird"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.EnableTLS = true
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func mustData(t *testing.T, body []byte) string {
	t.Helper()
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	return string(raw.Data)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
	webErrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, event.Event) {}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) CaptureError(_ context.Context, err error, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}
func (r *recordingReporter) CapturePanic(context.Context, any) {}
func (r *recordingReporter) Close() error                      { return nil }

type testEnv struct {
	store    *repository.MemoryStore
	engine   *gin.Engine
	handler  *GachaHandler
	reporter *recordingReporter
}

func newTestEnv(t *testing.T, limiter *service.LimiterConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := logger.NewNoop()

	holder, err := gameconfig.NewHolder(nil, l)
	require.NoError(t, err)
	m, err := metrics.New(nil)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	var defs []model.MaidenDefinition
	for tier := 1; tier <= gameconfig.MaxTier; tier++ {
		for n := 1; n <= 2; n++ {
			defs = append(defs, model.MaidenDefinition{ID: int64(tier*100 + n), Name: "maiden", Tier: tier})
		}
	}
	store.PutRoster(defs)

	rateCache := rates.NewCache(holder, 16)
	t.Cleanup(func() { _ = rateCache.Close() })
	if limiter == nil {
		limiter = &service.LimiterConfig{Enabled: false}
	}
	pl := service.NewPlayerLimiter(limiter)
	t.Cleanup(func() { _ = pl.Close() })

	roster := service.NewRosterService(l, store, holder)
	log := txlog.New(idgen.NewSequence(1), store)
	rnd := sampler.NewLockedSource(sampler.NewSeeded(7))

	reporter := &recordingReporter{}
	h := NewGachaHandler(
		service.NewSummonService(l, store, holder, rateCache, roster, log, lock.Noop{}, pl, nopPublisher{}, m, rnd),
		service.NewFusionService(l, store, holder, roster, log, lock.Noop{}, pl, nopPublisher{}, m, rnd),
		service.NewPlayerService(l, nil, store, log, rateCache),
		roster,
		reporter,
		l,
	)
	engine := gin.New()
	h.Register(engine)
	engine.GET("/health", Health)
	return &testEnv{store: store, engine: engine, handler: h, reporter: reporter}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, web.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp web.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// decode 把 Response.Data 转成具体类型
func decode[T any](t *testing.T, resp web.Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndGetPlayer(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/v1/players", gin.H{"player_id": 9})
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[model.Player](t, resp)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, int64(50), p.Grace)
	assert.Equal(t, int64(10000), p.Rikis)

	w, resp = env.do(t, http.MethodGet, "/api/v1/players/9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), decode[model.Player](t, resp).ID)

	// 重复开户不追加流水
	w, _ = env.do(t, http.MethodPost, "/api/v1/players", gin.H{"player_id": 9})
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = env.do(t, http.MethodGet, "/api/v1/players/9/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[[]model.TransactionRecord](t, resp)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TxPlayerRegistered, recs[0].Type)
	assert.Equal(t, "http:/api/v1/players", recs[0].Context)

	w, resp = env.do(t, http.MethodGet, "/api/v1/players/10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, webErrors.CodeNotFound, resp.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/players/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players", gin.H{"player_id": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webErrors.CodeInvalidParams, resp.Code)
}

func TestRates(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodGet, "/api/v1/rates?level=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[struct {
		Level   int           `json:"level"`
		Entries []rates.Entry `json:"entries"`
	}](t, resp)
	assert.Equal(t, 1, data.Level)
	require.Len(t, data.Entries, 3)

	var sum float64
	for _, e := range data.Entries {
		sum += e.Rate
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	w, resp = env.do(t, http.MethodGet, "/api/v1/rates?level=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webErrors.CodeInvalidParams, resp.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/rates?level=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummonEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.PutPlayer(model.Player{ID: 1, Level: 1, Grace: 60})

	w, resp := env.do(t, http.MethodPost, "/api/v1/players/1/summon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[model.SummonOutcome](t, resp)
	require.Len(t, out.Results, 1)
	assert.Equal(t, int64(55), out.GraceRemaining)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/summon/batch", gin.H{"count": 10})
	require.Equal(t, http.StatusOK, w.Code)
	out = decode[model.SummonOutcome](t, resp)
	assert.Len(t, out.Results, 10)
	assert.Equal(t, int64(5), out.GraceRemaining)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/summon/batch", gin.H{"count": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webErrors.CodeInvalidParams, resp.Code)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/summon/batch", gin.H{"count": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, webErrors.CodeConflict, resp.Code)
	detail := decode[InsufficientDetail](t, resp)
	assert.Equal(t, "grace", detail.Resource)
	assert.Equal(t, int64(25), detail.Required)
	assert.Equal(t, int64(5), detail.Available)

	w, resp = env.do(t, http.MethodGet, "/api/v1/players/1/transactions?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[[]model.TransactionRecord](t, resp)
	require.Len(t, recs, 2)
	assert.Equal(t, model.TxSummonBatch, recs[0].Type)
	assert.Equal(t, "http:/api/v1/players/:id/summon/batch", recs[0].Context)
	assert.Equal(t, model.TxSummon, recs[1].Type)

	w, resp = env.do(t, http.MethodGet, "/api/v1/players/1/inventory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var total int64
	for _, e := range decode[[]model.InventoryEntry](t, resp) {
		total += e.Quantity
	}
	assert.Equal(t, int64(11), total)
}

func TestFusionEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.PutPlayer(model.Player{ID: 1, Level: 1, Rikis: 5000})
	env.store.PutInventory(model.InventoryEntry{PlayerID: 1, MaidenID: 101, Tier: 1, Quantity: 4})

	w, resp := env.do(t, http.MethodPost, "/api/v1/players/1/fusion", gin.H{"maiden_id": 101, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[model.FusionResult](t, resp)
	assert.Contains(t, []model.FusionOutcome{model.FusionSuccess, model.FusionFailed}, res.Outcome)
	assert.Equal(t, int64(1000), res.RikisSpent)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/fusion", gin.H{"maiden_id": 101, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, webErrors.CodeInvalidParams, resp.Code)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/fusion", gin.H{"maiden_id": 999, "quantity": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, webErrors.CodeNotFound, resp.Code)

	w, resp = env.do(t, http.MethodPost, "/api/v1/players/1/fusion", gin.H{"maiden_id": 101, "quantity": 4})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "maidens", decode[InsufficientDetail](t, resp).Resource)

	w, _ = env.do(t, http.MethodPost, "/api/v1/players/1/fusion", gin.H{"quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitedSummon(t *testing.T) {
	env := newTestEnv(t, &service.LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
		MaxPlayers:        10,
	})
	env.store.PutPlayer(model.Player{ID: 1, Level: 1, Grace: 100})

	w, _ := env.do(t, http.MethodPost, "/api/v1/players/1/summon", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, "/api/v1/players/1/summon", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, webErrors.CodeRateLimited, resp.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRefreshRoster(t *testing.T) {
	env := newTestEnv(t, nil)

	w, resp := env.do(t, http.MethodPost, "/api/v1/admin/roster/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[struct {
		Maidens int   `json:"maidens"`
		Tiers   []int `json:"tiers"`
	}](t, resp)
	assert.Equal(t, 2*gameconfig.MaxTier, data.Maidens)
	assert.Len(t, data.Tiers, gameconfig.MaxTier)

	env.store.PutRoster([]model.MaidenDefinition{{ID: 101, Name: "solo", Tier: 1}})
	w, resp = env.do(t, http.MethodPost, "/api/v1/admin/roster/refresh", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, webErrors.CodeInternalError, resp.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"lock timeout", errors.Wrap(errcode.ErrLockTimeout, "lock player"), http.StatusLocked, webErrors.CodeLocked},
		{"serialization", errors.Mark(errors.New("tx aborted"), errcode.ErrConcurrency), http.StatusServiceUnavailable, webErrors.CodeServiceUnavailable},
		{"validation", errcode.Validation("count", "bad"), http.StatusBadRequest, webErrors.CodeInvalidParams},
		{"maiden not found", errors.Mark(errcode.Validation("maiden_id", "unknown"), errcode.ErrMaidenNotFound), http.StatusNotFound, webErrors.CodeNotFound},
		{"shards", errcode.InsufficientShards(100, 3), http.StatusConflict, webErrors.CodeConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, webErrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			env.handler.writeError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp web.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	env.reporter.mu.Lock()
	defer env.reporter.mu.Unlock()
	require.Len(t, env.reporter.errs, 1)
	assert.EqualError(t, env.reporter.errs[0], "boom")
}

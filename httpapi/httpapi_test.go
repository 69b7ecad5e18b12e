package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distlimit/distlimit/healthcheck"
	"github.com/distlimit/distlimit/metrics"
	"github.com/distlimit/distlimit/orchestrator"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/store"
	"github.com/distlimit/distlimit/strategies"

	_ "github.com/distlimit/distlimit/strategies/tokenbucket"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	s := store.NewMemory()

	registry, err := strategies.Build(s)
	require.NoError(t, err)

	defaultCfg := resolver.Config{
		Algorithm:           strategies.TokenBucket,
		Capacity:            5,
		RefillRate:          5,
		RefillPeriodSeconds: 60,
	}
	res := resolver.New(s, defaultCfg)
	m := metrics.New()
	orch := orchestrator.New(res, registry, m, nil, true)
	h := healthcheck.New(s, healthcheck.Config{}, nil)

	return New(orch, res, s, m, h, nil), s
}

func TestHandleCheck_AllowsThenDenies(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	body, _ := json.Marshal(checkRequest{Key: "user:alice", Tokens: 1})

	for range 5 {
		req := httptest.NewRequest(http.MethodPost, "/api/ratelimit/check", bytes.NewReader(body))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ratelimit/check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))

	var resp checkResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, 0, resp.RemainingTokens)
}

func TestHandleCheck_RejectsInvalidKey(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	body, _ := json.Marshal(checkRequest{Key: "has a space", Tokens: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/ratelimit/check", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSaveAndGetKeyConfig(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	cfgBody, _ := json.Marshal(configBody{
		Algorithm:           "TOKEN_BUCKET",
		Capacity:            20,
		RefillRate:          20,
		RefillPeriodSeconds: 60,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/ratelimit/config/keys/user:bob", bytes.NewReader(cfgBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ratelimit/config/user:bob", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got configBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 20, got.Capacity)
}

func TestHandleListPatternsAndReload(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	cfgBody, _ := json.Marshal(configBody{
		Algorithm:           "TOKEN_BUCKET",
		Capacity:            50,
		RefillRate:          50,
		RefillPeriodSeconds: 60,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/ratelimit/config/patterns/user:*", bytes.NewReader(cfgBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ratelimit/config/patterns", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []configBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, 50, list[0].Capacity)

	req = httptest.NewRequest(http.MethodPost, "/api/ratelimit/config/reload", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleAdminStatsAndCacheClear(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/cache/clear", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_GeneratedWhenAbsent(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRequestID_Echoed(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "fixed-id-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id-123", w.Header().Get("X-Request-Id"))
}

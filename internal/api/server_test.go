package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/database"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/progress"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/scheduler"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/stats"
)

type fakeStore struct {
	results *aggregate.Results
	runs    []database.Run
	err     error
	limit   int
}

func (f *fakeStore) LatestResults(context.Context) (*aggregate.Results, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.results == nil {
		return nil, aggregate.ErrNoResults
	}
	return f.results, nil
}

func (f *fakeStore) RecentRuns(_ context.Context, n int) ([]database.Run, error) {
	f.limit = n
	return f.runs, f.err
}

type fakeScheduler struct {
	triggered []aggregate.Mode
	err       error
	status    scheduler.Status
}

func (f *fakeScheduler) TriggerNow(mode aggregate.Mode) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, mode)
	return nil
}

func (f *fakeScheduler) Status() scheduler.Status { return f.status }

func sampleResults() *aggregate.Results {
	return &aggregate.Results{
		LastUpdated: "2024-06-15 12:00",
		ServerId:    "srv",
		TotalMovies: stats.Result{Title: "Total Movies", ValueLineOne: "3"},
		UserStats: []aggregate.UserStat{{
			UserName: "Alice",
			ShowProgresses: []progress.Row{
				{Id: "a", Name: "Alpha", PercentSeen: 10},
				{Id: "b", Name: "Beta", PercentSeen: 90},
			},
		}},
	}
}

type env struct {
	store *fakeStore
	sched *fakeScheduler
	srv   *Server
}

func newEnv(results *aggregate.Results) env {
	store := &fakeStore{results: results}
	sched := &fakeScheduler{status: scheduler.Status{Healthy: true}}
	return env{
		store: store,
		sched: sched,
		srv:   NewServer(Config{Store: store, Scheduler: sched, APIToken: "secret"}),
	}
}

func (e env) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func TestGetStats(t *testing.T) {
	e := newEnv(sampleResults())
	w := e.do(t, http.MethodGet, "/api/v1/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "2024-06-15 12:00", got["LastUpdated"])
	assert.Contains(t, got, "TotalMovies")
}

func TestNoResultsYet(t *testing.T) {
	e := newEnv(nil)
	for _, path := range []string{"/api/v1/stats", "/api/v1/stats/users", "/api/v1/stats/users/alice"} {
		w := e.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "no_results")
	}
}

func TestStoreFailure(t *testing.T) {
	e := newEnv(nil)
	e.store.err = errors.New("disk full")

	w := e.do(t, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = e.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUsers(t *testing.T) {
	e := newEnv(sampleResults())

	w := e.do(t, http.MethodGet, "/api/v1/stats/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Equal(t, []UserSummary{{UserName: "Alice", Shows: 2}}, users)

	w = e.do(t, http.MethodGet, "/api/v1/stats/users/alice", "")
	require.Equal(t, http.StatusOK, w.Code, "names match ignoring case")
	var user aggregate.UserStat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Alice", user.UserName)

	w = e.do(t, http.MethodGet, "/api/v1/stats/users/bob", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_user")
}

func TestUserProgressOrder(t *testing.T) {
	e := newEnv(sampleResults())
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Alpha", "Beta"}},
		{"?order=most", []string{"Beta", "Alpha"}},
		{"?order=least", []string{"Alpha", "Beta"}},
	}
	for _, tt := range tests {
		w := e.do(t, http.MethodGet, "/api/v1/stats/users/Alice/progress"+tt.query, "")
		require.Equal(t, http.StatusOK, w.Code, tt.query)

		var rows []progress.Row
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		var names []string
		for _, r := range rows {
			names = append(names, r.Name)
		}
		assert.Equal(t, tt.want, names, tt.query)
	}

	w := e.do(t, http.MethodGet, "/api/v1/stats/users/Alice/progress?order=random", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRuns(t *testing.T) {
	e := newEnv(nil)
	e.store.runs = []database.Run{{ID: "r1", Mode: "full", Status: database.StatusSuccess, StartedAt: time.Now()}}

	w := e.do(t, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultRunLimit, e.store.limit)
	assert.Contains(t, w.Body.String(), `"id":"r1"`)

	e.do(t, http.MethodGet, "/api/v1/runs?limit=5000", "")
	assert.Equal(t, maxRunLimit, e.store.limit)

	w = e.do(t, http.MethodGet, "/api/v1/runs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerRun(t *testing.T) {
	e := newEnv(nil)

	w := e.do(t, http.MethodPost, "/api/v1/runs?mode=tv", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/runs?mode=tv", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/runs?mode=tv", "secret")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/runs", "secret")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []aggregate.Mode{aggregate.ModeTV, aggregate.ModeFull}, e.sched.triggered)

	w = e.do(t, http.MethodPost, "/api/v1/runs?mode=weekly", "secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.sched.err = aggregate.ErrBusy
	w = e.do(t, http.MethodPost, "/api/v1/runs?mode=media", "secret")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerDisabledWithoutToken(t *testing.T) {
	srv := NewServer(Config{Store: &fakeStore{}, Scheduler: &fakeScheduler{}})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(nil)

	w := e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	require.NotNil(t, resp.Scheduler)

	e.sched.status = scheduler.Status{Healthy: false, LastError: "server down"}
	w = e.do(t, http.MethodGet, "/health", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", resp.Status)

	e.srv.SetHealthy(false)
	w = e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyWithoutResults(t *testing.T) {
	e := newEnv(nil)
	w := e.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(nil)
	w := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(sampleResults())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

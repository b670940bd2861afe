package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bivex/fitness-stats/internal/application/command"
	"github.com/bivex/fitness-stats/internal/application/query"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	"github.com/bivex/fitness-stats/internal/domain/service"
	"github.com/bivex/fitness-stats/internal/interfaces/http/handlers"
	"github.com/bivex/fitness-stats/tests/mocks"
	"github.com/bivex/fitness-stats/tests/testutil"
)

var now = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Meta  struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type testServer struct {
	router  *gin.Engine
	subs    *mocks.MockSubscriptionRepository
	pays    *mocks.MockPaymentRepository
	history *mocks.MockRefreshHistoryRepository
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := testutil.NewManualClock(now)
	manager := service.NewStatisticsManager(service.NewStatisticsCache(5*time.Minute, clock), clock, zap.NewNop())

	core, logs := observer.New(zap.DebugLevel)
	ts := &testServer{
		logs:    logs,
		subs:    mocks.NewMockSubscriptionRepository(),
		pays:    mocks.NewMockPaymentRepository(),
		history: mocks.NewMockRefreshHistoryRepository(),
	}

	refresh := command.NewRefreshStatisticsCommand(ts.subs, ts.pays, ts.history, manager, clock, command.DefaultRefreshConfig(), zap.NewNop())
	handler := handlers.NewStatisticsHandler(
		query.NewStatisticsQuery(manager, refresh),
		query.NewRefreshHistoryQuery(ts.history),
		refresh,
		command.NewClearStatisticsCacheCommand(manager, clock),
		30,
		zap.New(core),
	)

	ts.router = gin.New()
	handler.RegisterRoutes(ts.router.Group("/v1"), nil)
	return ts
}

func (ts *testServer) seedSources() {
	subFactory := testutil.NewSubscriptionFactory()
	payFactory := testutil.NewPaymentFactory()

	active := subFactory.CreateActive(now.AddDate(0, -1, 0))
	expiring := subFactory.CreateExpiring(now.AddDate(0, -6, 0), now.AddDate(0, 0, 10))

	ts.subs.On("ListAllWithDetails", mock.Anything).Return([]entity.Subscription{active, expiring}, nil)
	ts.pays.On("ListAll", mock.Anything).Return([]entity.Payment{
		payFactory.CreateSuccessful(active.ID, "99.90", now.AddDate(0, 0, -2)),
	}, nil)
	ts.history.On("Record", mock.Anything, mock.Anything).Return(nil)
}

func (ts *testServer) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestStatisticsHandler_GetStatistics(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSources()

	w, env := ts.do(t, http.MethodGet, "/v1/statistics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Meta.RequestID)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, float64(2), stats["total_subscriptions"])
	assert.Equal(t, float64(2), stats["active_subscriptions"])
	assert.Equal(t, "99.9", stats["total_revenue"])
}

func TestStatisticsHandler_ColdCacheFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.subs.On("ListAllWithDetails", mock.Anything).Return(nil, errors.New("db down"))
	ts.pays.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))
	ts.history.On("Record", mock.Anything, mock.Anything).Return(nil)

	for _, path := range []string{"/v1/statistics", "/v1/statistics/revenue", "/v1/statistics/dashboard"} {
		w, env := ts.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error, path)
	}
}

func TestStatisticsHandler_GetExpiringSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSources()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCount  int
	}{
		{"default window", "/v1/statistics/expiring", http.StatusOK, 1},
		{"narrow window", "/v1/statistics/expiring?daysAhead=5", http.StatusOK, 0},
		{"upper bound", "/v1/statistics/expiring?daysAhead=365", http.StatusOK, 1},
		{"zero", "/v1/statistics/expiring?daysAhead=0", http.StatusBadRequest, 0},
		{"too large", "/v1/statistics/expiring?daysAhead=366", http.StatusBadRequest, 0},
		{"not a number", "/v1/statistics/expiring?daysAhead=soon", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(t, http.MethodGet, tt.path)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "INVALID_REQUEST", env.Error)
				return
			}
			var items []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &items))
			assert.Len(t, items, tt.wantCount)
		})
	}
}

func TestStatisticsHandler_TrendsAndRevenue(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSources()

	w, env := ts.do(t, http.MethodGet, "/v1/statistics/trends")
	require.Equal(t, http.StatusOK, w.Code)
	var trends []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &trends))
	require.Len(t, trends, 12)
	assert.Equal(t, "Jun 2026", trends[11]["period"])

	w, env = ts.do(t, http.MethodGet, "/v1/statistics/revenue")
	require.Equal(t, http.StatusOK, w.Code)
	var revenue map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &revenue))
	assert.Equal(t, "99.9", revenue["this_week"])
	assert.Equal(t, "0", revenue["today"])
}

func TestStatisticsHandler_RefreshAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSources()

	w, env := ts.do(t, http.MethodPost, "/v1/statistics/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.Equal(t, float64(2), refreshed["subscriptions"])
	assert.Equal(t, float64(1), refreshed["payments"])

	w, env = ts.do(t, http.MethodGet, "/v1/statistics/cache-info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, false, info["is_expired"])
	assert.Equal(t, float64(2), info["cached_subscriptions"])

	w, _ = ts.do(t, http.MethodDelete, "/v1/statistics/cache")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/statistics/cache-info")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, true, info["is_expired"])
	assert.Equal(t, float64(0), info["cached_subscriptions"])
	assert.Nil(t, info["last_update"])
}

func TestStatisticsHandler_GetRefreshHistory(t *testing.T) {
	ts := newTestServer(t)
	rec := entity.NewRefreshRecord(entity.TriggerManual, now)
	rec.Succeed(2, 1, now.Add(time.Second))
	ts.history.On("List", mock.Anything, 5).Return([]entity.RefreshRecord{*rec}, nil)

	w, env := ts.do(t, http.MethodGet, "/v1/statistics/refresh-history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "manual", history[0]["trigger"])

	w, env = ts.do(t, http.MethodGet, "/v1/statistics/refresh-history?limit=-2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error)
}

func TestStatisticsHandler_ClientDisconnect(t *testing.T) {
	ts := newTestServer(t)

	release := make(chan struct{})
	defer close(release)
	ts.subs.On("ListAllWithDetails", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]entity.Subscription{}, nil)
	ts.pays.On("ListAll", mock.Anything).Return([]entity.Payment{}, nil)
	ts.history.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/statistics", nil).WithContext(ctx))

	assert.Equal(t, 499, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Zero(t, ts.logs.FilterLevelExact(zap.ErrorLevel).Len())
	assert.Equal(t, 1, ts.logs.FilterLevelExact(zap.DebugLevel).Len())
}

func TestStatisticsHandler_MalformedQueryParameters(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/v1/statistics/expiring?daysAhead=soon",
		"/v1/statistics/refresh-history?limit=many",
	} {
		w, env := ts.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "INVALID_REQUEST", env.Error, path)
	}
	ts.subs.AssertNotCalled(t, "ListAllWithDetails", mock.Anything)
}

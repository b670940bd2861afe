package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/application/query"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/service"
	"github.com/bivex/fitness-stats/tests/testutil"
)

var now = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) RefreshIfExpired(ctx context.Context) error {
	s.calls++
	return s.err
}

func newQuery(t *testing.T, refresher query.CacheRefresher) (*query.StatisticsQuery, *service.StatisticsManager) {
	t.Helper()
	clock := testutil.NewManualClock(now)
	manager := service.NewStatisticsManager(service.NewStatisticsCache(5*time.Minute, clock), clock, zap.NewNop())
	return query.NewStatisticsQuery(manager, refresher), manager
}

func seed(manager *service.StatisticsManager) {
	subs := testutil.NewSubscriptionFactory()
	pays := testutil.NewPaymentFactory()

	active := subs.CreateActive(now.AddDate(0, -1, 0))
	expiring := subs.CreateExpiring(now.AddDate(0, -3, 0), now.Add(72*time.Hour+time.Hour))
	cancelled := subs.CreateCancelled(now.AddDate(0, -4, 0), now.AddDate(0, 0, -2))

	manager.UpdateCache(
		[]entity.Subscription{active, expiring, cancelled},
		[]entity.Payment{
			pays.CreateSuccessful(active.ID, "10.005", now.Add(-time.Hour)),
			pays.CreateSuccessful(expiring.ID, "20", now.AddDate(0, -2, 0)),
			pays.CreateFailed(cancelled.ID, "15", now),
		},
	)
}

func TestStatisticsQuery_GetStatistics(t *testing.T) {
	refresher := &stubRefresher{}
	q, manager := newQuery(t, refresher)
	seed(manager)

	stats, err := q.GetStatistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, 3, stats.TotalSubscriptions)
	assert.Equal(t, 2, stats.ActiveSubscriptions)
	assert.True(t, decimal.RequireFromString("66.67").Equal(stats.ActivePercentage), stats.ActivePercentage.String())
	assert.True(t, decimal.RequireFromString("30.01").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
	assert.Equal(t, 3, stats.TotalPayments)
	assert.Equal(t, 1, stats.FailedPayments)
	assert.Equal(t, map[string]int{"Monthly": 3}, stats.SubscriptionsByType)
}

func TestStatisticsQuery_RefreshFailure(t *testing.T) {
	refresher := &stubRefresher{err: domainErrors.ErrStatisticsSourceUnavailable}
	q, _ := newQuery(t, refresher)

	_, err := q.GetStatistics(context.Background())
	assert.ErrorIs(t, err, domainErrors.ErrStatisticsSourceUnavailable)

	_, err = q.GetDashboard(context.Background())
	assert.ErrorIs(t, err, domainErrors.ErrStatisticsSourceUnavailable)

	_, err = q.GetSubscriptionTrends(context.Background())
	assert.Error(t, err)
}

func TestStatisticsQuery_GetExpiringSubscriptions(t *testing.T) {
	t.Run("rejects out of range windows without refreshing", func(t *testing.T) {
		refresher := &stubRefresher{}
		q, _ := newQuery(t, refresher)

		for _, days := range []int{0, -1, 366} {
			_, err := q.GetExpiringSubscriptions(context.Background(), days)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainErrors.ErrInvalidDaysAhead))
			assert.ErrorIs(t, err, domainErrors.ErrOutOfRange)

			var validationErr *domainErrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "daysAhead", validationErr.Field)
		}
		assert.Zero(t, refresher.calls)
	})

	t.Run("returns subscriptions inside the window", func(t *testing.T) {
		q, manager := newQuery(t, &stubRefresher{})
		seed(manager)

		expiring, err := q.GetExpiringSubscriptions(context.Background(), 7)

		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, 3, expiring[0].DaysRemaining)
		assert.Equal(t, "Monthly", expiring[0].PlanType)
	})

	t.Run("empty window yields an empty list", func(t *testing.T) {
		q, manager := newQuery(t, &stubRefresher{})
		seed(manager)

		expiring, err := q.GetExpiringSubscriptions(context.Background(), 1)

		require.NoError(t, err)
		assert.NotNil(t, expiring)
		assert.Empty(t, expiring)
	})
}

func TestStatisticsQuery_GetCacheInfo(t *testing.T) {
	refresher := &stubRefresher{}
	q, manager := newQuery(t, refresher)

	cold := q.GetCacheInfo(context.Background())
	assert.True(t, cold.IsExpired)
	assert.Nil(t, cold.LastUpdate)
	assert.Equal(t, int64(300), cold.TTLSeconds)

	seed(manager)
	warm := q.GetCacheInfo(context.Background())
	assert.False(t, warm.IsExpired)
	assert.Equal(t, 3, warm.CachedSubscriptions)
	assert.Equal(t, 3, warm.CachedPayments)
	require.NotNil(t, warm.ExpiresAt)
	assert.Equal(t, now.Add(5*time.Minute), *warm.ExpiresAt)

	assert.Zero(t, refresher.calls, "cache info never refreshes")
}

func TestStatisticsQuery_GetDashboard(t *testing.T) {
	q, manager := newQuery(t, &stubRefresher{})
	seed(manager)

	dashboard, err := q.GetDashboard(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, dashboard.TotalSubscriptions)
	assert.Equal(t, 2, dashboard.ActiveSubscriptions)
	assert.Equal(t, "10.01", dashboard.Revenue.Today.StringFixed(2))
	assert.Equal(t, "30.01", dashboard.Revenue.AllTime.StringFixed(2))
	assert.Equal(t, now, dashboard.CalculatedAt)
}

func TestStatisticsQuery_GetSubscriptionTrends(t *testing.T) {
	q, manager := newQuery(t, &stubRefresher{})
	seed(manager)

	trends, err := q.GetSubscriptionTrends(context.Background())

	require.NoError(t, err)
	require.Len(t, trends, service.TrendMonths)
	assert.Equal(t, "Jun 2026", trends[len(trends)-1].Period)
	assert.Equal(t, 1, trends[len(trends)-1].CancelledSubscriptions)
}

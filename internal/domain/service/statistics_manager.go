package service

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

const (
	// TrendMonths is the number of calendar months reported by GetSubscriptionTrends
	TrendMonths = 12

	trendPeriodLayout = "Jan 2006"
)

// StatisticsManager serves subscription and payment statistics from the
// in-memory cache. Every read assumes the caller already refreshed a stale
// cache; see IsCacheExpired.
type StatisticsManager struct {
	cache   *StatisticsCache
	metrics *MetricsCalculator
	revenue *RevenueCalculator
	trends  *TrendCalculator
	clock   Clock
	logger  *zap.Logger
}

// NewStatisticsManager creates a statistics manager over the given cache
func NewStatisticsManager(cache *StatisticsCache, clock Clock, logger *zap.Logger) *StatisticsManager {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsManager{
		cache:   cache,
		metrics: NewMetricsCalculator(),
		revenue: NewRevenueCalculator(clock),
		trends:  NewTrendCalculator(clock),
		clock:   clock,
		logger:  logger.With(zap.String("component", "statistics_manager")),
	}
}

// UpdateCache installs a new generation of records
func (m *StatisticsManager) UpdateCache(subscriptions []entity.Subscription, payments []entity.Payment) {
	m.cache.UpdateCache(subscriptions, payments)
	m.logger.Info("Statistics cache updated",
		zap.Int("subscriptions", len(subscriptions)),
		zap.Int("payments", len(payments)),
	)
}

// IsCacheExpired reports whether the cache needs a refresh
func (m *StatisticsManager) IsCacheExpired() bool {
	return m.cache.IsExpired()
}

// ClearCache drops all cached records
func (m *StatisticsManager) ClearCache() {
	m.cache.Clear()
	m.logger.Info("Statistics cache cleared")
}

// LastUpdate returns when the cache was last populated, zero if never
func (m *StatisticsManager) LastUpdate() time.Time {
	return m.cache.LastUpdate()
}

// GetStatistics computes the full statistics set from one cache generation
func (m *StatisticsManager) GetStatistics() *StatisticsResult {
	gen := m.cache.Snapshot()
	subs, payments := gen.Subscriptions, gen.Payments

	total := len(subs)
	active := m.metrics.CountByStatus(subs, entity.StatusActive)
	pending := m.metrics.CountByStatus(subs, entity.StatusPending)
	expired := m.metrics.CountByStatus(subs, entity.StatusExpired)
	cancelled := m.metrics.CountByStatus(subs, entity.StatusCancelled)

	var successful, failed, pendingPayments int
	for i := range payments {
		switch p := &payments[i]; {
		case p.IsSuccessful():
			successful++
		case p.IsFailed():
			failed++
		case p.IsPending():
			pendingPayments++
		}
	}

	totalRevenue := m.revenue.Total(payments)
	averageValue := decimal.Zero
	if total > 0 {
		averageValue = totalRevenue.Div(decimalFromInt(total))
	}

	var expiresAt time.Time
	if !gen.LastUpdate.IsZero() {
		expiresAt = gen.LastUpdate.Add(m.cache.TTL())
	}

	return &StatisticsResult{
		CalculatedAt:   m.clock.Now().UTC(),
		CacheExpiresAt: expiresAt,

		TotalSubscriptions:     total,
		ActiveSubscriptions:    active,
		PendingSubscriptions:   pending,
		ExpiredSubscriptions:   expired,
		CancelledSubscriptions: cancelled,

		ActivePercentage:    m.metrics.CalculatePercentage(active, total),
		PendingPercentage:   m.metrics.CalculatePercentage(pending, total),
		ExpiredPercentage:   m.metrics.CalculatePercentage(expired, total),
		CancelledPercentage: m.metrics.CalculatePercentage(cancelled, total),

		TotalRevenue:             totalRevenue,
		MonthlyRevenue:           m.revenue.Monthly(payments),
		YearlyRevenue:            m.revenue.Yearly(payments),
		AverageSubscriptionValue: averageValue,

		TotalPayments:      len(payments),
		SuccessfulPayments: successful,
		FailedPayments:     failed,
		PendingPayments:    pendingPayments,
		PaymentSuccessRate: m.metrics.CalculatePercentage(successful, len(payments)),

		GrowthRate: m.trends.GrowthRate(subs),
		ChurnRate:  m.trends.ChurnRate(subs),

		SubscriptionsByType: m.metrics.GroupByType(subs),
	}
}

// GetRevenueBreakdown computes revenue per period from one payment snapshot
func (m *StatisticsManager) GetRevenueBreakdown() *RevenueResult {
	payments := m.cache.GetCachedPayments()

	return &RevenueResult{
		Today:     m.revenue.Daily(payments),
		ThisWeek:  m.revenue.Weekly(payments),
		ThisMonth: m.revenue.Monthly(payments),
		ThisYear:  m.revenue.Yearly(payments),
		AllTime:   m.revenue.Total(payments),
	}
}

// GetSubscriptionTrends returns one entry per calendar month for the last
// TrendMonths months, oldest first and ending with the current month
func (m *StatisticsManager) GetSubscriptionTrends() []TrendResult {
	subs := m.cache.GetCachedSubscriptions()
	current := startOfMonth(m.clock.Now())

	trends := make([]TrendResult, 0, TrendMonths)
	for i := TrendMonths - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		var created, cancelled int
		for j := range subs {
			s := &subs[j]
			if inRange(s.CreatedAt, start, end) {
				created++
			}
			if s.IsCancelled() && inRange(s.UpdatedAt, start, end) {
				cancelled++
			}
		}

		trends = append(trends, TrendResult{
			Period:                 start.Format(trendPeriodLayout),
			MonthStart:             start,
			NewSubscriptions:       created,
			CancelledSubscriptions: cancelled,
			NetGrowth:              created - cancelled,
		})
	}

	return trends
}

// GetExpiringSubscriptions returns active subscriptions whose end date falls
// within the next daysAhead days, soonest first
func (m *StatisticsManager) GetExpiringSubscriptions(daysAhead int) []ExpiringResult {
	subs := m.cache.GetCachedSubscriptions()
	now := m.clock.Now().UTC()
	cutoff := now.AddDate(0, 0, daysAhead)

	expiring := make([]ExpiringResult, 0)
	for i := range subs {
		s := &subs[i]
		if !s.IsActive() || !s.HasEndDate() {
			continue
		}
		end := s.EndDate.UTC()
		if end.Before(now) || end.After(cutoff) {
			continue
		}

		expiring = append(expiring, ExpiringResult{
			SubscriptionID: s.ID,
			ClientID:       s.ClientID,
			ClientName:     s.DisplayClientName(),
			PlanType:       s.PlanType.Label(),
			EndDate:        end,
			DaysRemaining:  int(end.Sub(now) / (24 * time.Hour)),
		})
	}

	slices.SortStableFunc(expiring, func(a, b ExpiringResult) int {
		return a.EndDate.Compare(b.EndDate)
	})

	return expiring
}

// GetCacheInfo describes the current cache generation
func (m *StatisticsManager) GetCacheInfo() *CacheResult {
	state := m.cache.State()

	info := &CacheResult{
		IsExpired:           state.Expired,
		CachedSubscriptions: state.Subscriptions,
		CachedPayments:      state.Payments,
		LastUpdate:          state.LastUpdate,
		TTL:                 state.TTL,
	}
	if !state.LastUpdate.IsZero() {
		info.ExpiresAt = state.LastUpdate.Add(state.TTL)
	}
	return info
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh results
const (
	RefreshSuccess     = "success"
	RefreshFailure     = "failure"
	RefreshBreakerOpen = "breaker_open"
)

func init() {
	register(
		statisticsRefreshTotal,
		statisticsRefreshDuration,
		statisticsCachedRecords,
		statisticsServedStaleTotal,
		statisticsBreakerState,
	)
}

var (
	statisticsRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statistics_refresh_total",
			Help: "Statistics cache refreshes by result.",
		},
		[]string{"result"},
	)

	statisticsRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "statistics_refresh_duration_seconds",
			Help:    "Time spent fetching and installing a statistics cache generation.",
			Buckets: prometheus.DefBuckets,
		},
	)

	statisticsCachedRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "statistics_cached_records",
			Help: "Records held by the current statistics cache generation.",
		},
		[]string{"kind"}, // subscriptions, payments
	)

	statisticsServedStaleTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "statistics_served_stale_total",
			Help: "Reads answered from an expired cache because the refresh failed.",
		},
	)

	// 0 = closed, 1 = half-open, 2 = open
	statisticsBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "statistics_source_breaker_state",
			Help: "State of the circuit breaker guarding the statistics data sources.",
		},
	)
)

// ObserveRefresh records the outcome and duration of a refresh
func ObserveRefresh(result string, elapsed time.Duration) {
	statisticsRefreshTotal.WithLabelValues(result).Inc()
	statisticsRefreshDuration.Observe(elapsed.Seconds())
}

// SetCachedRecords publishes the size of the current cache generation
func SetCachedRecords(subscriptions, payments int) {
	statisticsCachedRecords.WithLabelValues("subscriptions").Set(float64(subscriptions))
	statisticsCachedRecords.WithLabelValues("payments").Set(float64(payments))
}

// IncServedStale counts a read served from an expired cache
func IncServedStale() {
	statisticsServedStaleTotal.Inc()
}

// SetBreakerState publishes the source circuit breaker state
func SetBreakerState(state float64) {
	statisticsBreakerState.Set(state)
}

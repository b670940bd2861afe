package service

import (
	"github.com/shopspring/decimal"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// MetricsCalculator computes counts and shares over a subscription snapshot
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CountByStatus counts subscriptions in the given status
func (m *MetricsCalculator) CountByStatus(subscriptions []entity.Subscription, status entity.SubscriptionStatus) int {
	count := 0
	for i := range subscriptions {
		if subscriptions[i].Status == status {
			count++
		}
	}
	return count
}

// CalculatePercentage returns count as a percentage of total, or zero when total is zero
func (m *MetricsCalculator) CalculatePercentage(count, total int) decimal.Decimal {
	return percentage(decimalFromInt(count), decimalFromInt(total))
}

// GroupByType counts subscriptions per plan type. Missing plan types are
// reported under entity.UnknownLabel.
func (m *MetricsCalculator) GroupByType(subscriptions []entity.Subscription) map[string]int {
	groups := make(map[string]int)
	for i := range subscriptions {
		groups[subscriptions[i].PlanType.Label()]++
	}
	return groups
}

func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

package service

import (
	"github.com/shopspring/decimal"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// TrendCalculator computes month-over-month growth and churn
type TrendCalculator struct {
	clock Clock
}

// NewTrendCalculator creates a new trend calculator
func NewTrendCalculator(clock Clock) *TrendCalculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TrendCalculator{clock: clock}
}

// GrowthRate compares subscriptions created this month with those created
// last month. It is zero when last month had no new subscriptions.
func (t *TrendCalculator) GrowthRate(subscriptions []entity.Subscription) decimal.Decimal {
	monthStart := startOfMonth(t.clock.Now())
	previousStart := monthStart.AddDate(0, -1, 0)

	var previous, current int64
	for i := range subscriptions {
		created := subscriptions[i].CreatedAt
		switch {
		case !created.Before(monthStart):
			current++
		case !created.Before(previousStart):
			previous++
		}
	}

	if previous == 0 {
		return decimal.Zero
	}
	return percentage(decimal.NewFromInt(current-previous), decimal.NewFromInt(previous))
}

// ChurnRate is the share of active plus cancelled-this-month subscriptions
// that were cancelled this month
func (t *TrendCalculator) ChurnRate(subscriptions []entity.Subscription) decimal.Decimal {
	monthStart := startOfMonth(t.clock.Now())

	var active, cancelled int64
	for i := range subscriptions {
		s := &subscriptions[i]
		switch {
		case s.IsActive():
			active++
		case s.IsCancelled() && !s.UpdatedAt.Before(monthStart):
			cancelled++
		}
	}

	return percentage(decimal.NewFromInt(cancelled), decimal.NewFromInt(active+cancelled))
}

package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// RevenueCalculator sums successful payments over calendar windows.
// Each call reads the clock once and compares dates in UTC.
type RevenueCalculator struct {
	clock Clock
}

// NewRevenueCalculator creates a new revenue calculator
func NewRevenueCalculator(clock Clock) *RevenueCalculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RevenueCalculator{clock: clock}
}

// Total returns all-time revenue
func (r *RevenueCalculator) Total(payments []entity.Payment) decimal.Decimal {
	return sumSuccessful(payments, func(time.Time) bool { return true })
}

// Yearly returns revenue for the current calendar year
func (r *RevenueCalculator) Yearly(payments []entity.Payment) decimal.Decimal {
	now := r.clock.Now().UTC()
	return sumSuccessful(payments, func(paid time.Time) bool {
		return paid.Year() == now.Year()
	})
}

// Monthly returns revenue for the current calendar month
func (r *RevenueCalculator) Monthly(payments []entity.Payment) decimal.Decimal {
	now := r.clock.Now().UTC()
	return sumSuccessful(payments, func(paid time.Time) bool {
		return paid.Year() == now.Year() && paid.Month() == now.Month()
	})
}

// Daily returns revenue for today's calendar date
func (r *RevenueCalculator) Daily(payments []entity.Payment) decimal.Decimal {
	now := r.clock.Now().UTC()
	return sumSuccessful(payments, func(paid time.Time) bool {
		return paid.Year() == now.Year() && paid.YearDay() == now.YearDay()
	})
}

// Weekly returns revenue for the rolling seven days ending now
func (r *RevenueCalculator) Weekly(payments []entity.Payment) decimal.Decimal {
	since := r.clock.Now().UTC().AddDate(0, 0, -7)
	return sumSuccessful(payments, func(paid time.Time) bool {
		return !paid.Before(since)
	})
}

func sumSuccessful(payments []entity.Payment, inWindow func(time.Time) bool) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		p := &payments[i]
		if !p.IsSuccessful() || !inWindow(p.PaymentDate.UTC()) {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

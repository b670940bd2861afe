package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResult is the full statistics picture for one cache generation
type StatisticsResult struct {
	CalculatedAt   time.Time
	CacheExpiresAt time.Time

	TotalSubscriptions     int
	ActiveSubscriptions    int
	PendingSubscriptions   int
	ExpiredSubscriptions   int
	CancelledSubscriptions int

	ActivePercentage    decimal.Decimal
	PendingPercentage   decimal.Decimal
	ExpiredPercentage   decimal.Decimal
	CancelledPercentage decimal.Decimal

	TotalRevenue             decimal.Decimal
	MonthlyRevenue           decimal.Decimal
	YearlyRevenue            decimal.Decimal
	AverageSubscriptionValue decimal.Decimal

	TotalPayments      int
	SuccessfulPayments int
	FailedPayments     int
	PendingPayments    int
	PaymentSuccessRate decimal.Decimal

	GrowthRate decimal.Decimal
	ChurnRate  decimal.Decimal

	SubscriptionsByType map[string]int
}

// RevenueResult breaks revenue down by period
type RevenueResult struct {
	Today     decimal.Decimal
	ThisWeek  decimal.Decimal
	ThisMonth decimal.Decimal
	ThisYear  decimal.Decimal
	AllTime   decimal.Decimal
}

// TrendResult is one calendar month of subscription movement
type TrendResult struct {
	Period                 string
	MonthStart             time.Time
	NewSubscriptions       int
	CancelledSubscriptions int
	NetGrowth              int
}

// ExpiringResult is an active subscription that ends soon
type ExpiringResult struct {
	SubscriptionID int64
	ClientID       int64
	ClientName     string
	PlanType       string
	EndDate        time.Time
	DaysRemaining  int
}

// CacheResult describes the state of the statistics cache
type CacheResult struct {
	IsExpired           bool
	CachedSubscriptions int
	CachedPayments      int
	LastUpdate          time.Time
	ExpiresAt           time.Time
	TTL                 time.Duration
}

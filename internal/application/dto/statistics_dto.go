package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money and percentage values are rounded to this many decimal places
const DecimalPlaces = 2

// Round2 rounds a decimal for presentation
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(DecimalPlaces)
}

// ========== STATISTICS DTOs ==========

// StatisticsResponse is the full statistics overview
type StatisticsResponse struct {
	TotalSubscriptions     int `json:"total_subscriptions"`
	ActiveSubscriptions    int `json:"active_subscriptions"`
	PendingSubscriptions   int `json:"pending_subscriptions"`
	ExpiredSubscriptions   int `json:"expired_subscriptions"`
	CancelledSubscriptions int `json:"cancelled_subscriptions"`

	ActivePercentage    decimal.Decimal `json:"active_percentage"`
	PendingPercentage   decimal.Decimal `json:"pending_percentage"`
	ExpiredPercentage   decimal.Decimal `json:"expired_percentage"`
	CancelledPercentage decimal.Decimal `json:"cancelled_percentage"`

	TotalRevenue             decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue           decimal.Decimal `json:"monthly_revenue"`
	YearlyRevenue            decimal.Decimal `json:"yearly_revenue"`
	AverageSubscriptionValue decimal.Decimal `json:"average_subscription_value"`

	TotalPayments      int             `json:"total_payments"`
	SuccessfulPayments int             `json:"successful_payments"`
	FailedPayments     int             `json:"failed_payments"`
	PendingPayments    int             `json:"pending_payments"`
	PaymentSuccessRate decimal.Decimal `json:"payment_success_rate"`

	GrowthRate decimal.Decimal `json:"growth_rate"`
	ChurnRate  decimal.Decimal `json:"churn_rate"`

	SubscriptionsByType map[string]int `json:"subscriptions_by_type"`

	CalculatedAt   time.Time `json:"calculated_at"`
	CacheExpiresAt time.Time `json:"cache_expires_at"`
}

// RevenueBreakdownResponse is revenue grouped by period
type RevenueBreakdownResponse struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
	ThisYear  decimal.Decimal `json:"this_year"`
	AllTime   decimal.Decimal `json:"all_time"`
}

// SubscriptionTrendResponse is one month of subscription movement
type SubscriptionTrendResponse struct {
	Period                 string `json:"period"`
	NewSubscriptions       int    `json:"new_subscriptions"`
	CancelledSubscriptions int    `json:"cancelled_subscriptions"`
	NetGrowth              int    `json:"net_growth"`
}

// ExpiringSubscriptionResponse is an active subscription ending soon
type ExpiringSubscriptionResponse struct {
	SubscriptionID int64     `json:"subscription_id"`
	ClientID       int64     `json:"client_id"`
	ClientName     string    `json:"client_name"`
	PlanType       string    `json:"plan_type"`
	EndDate        time.Time `json:"end_date"`
	DaysRemaining  int       `json:"days_remaining"`
}

// CacheInfoResponse describes the statistics cache
type CacheInfoResponse struct {
	IsExpired           bool       `json:"is_expired"`
	CachedSubscriptions int        `json:"cached_subscriptions"`
	CachedPayments      int        `json:"cached_payments"`
	LastUpdate          *time.Time `json:"last_update"`
	ExpiresAt           *time.Time `json:"expires_at"`
	TTLSeconds          int64      `json:"ttl_seconds"`
}

// DashboardResponse is the compact summary used by the admin dashboard
type DashboardResponse struct {
	TotalSubscriptions  int                      `json:"total_subscriptions"`
	ActiveSubscriptions int                      `json:"active_subscriptions"`
	TotalRevenue        decimal.Decimal          `json:"total_revenue"`
	MonthlyRevenue      decimal.Decimal          `json:"monthly_revenue"`
	GrowthRate          decimal.Decimal          `json:"growth_rate"`
	ChurnRate           decimal.Decimal          `json:"churn_rate"`
	Revenue             RevenueBreakdownResponse `json:"revenue"`
	CalculatedAt        time.Time                `json:"calculated_at"`
}

// ========== REFRESH DTOs ==========

// RefreshResponse is returned after the cache has been reloaded
type RefreshResponse struct {
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Subscriptions int       `json:"subscriptions"`
	Payments      int       `json:"payments"`
}

// ClearCacheResponse is returned after the cache has been emptied
type ClearCacheResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RefreshRecordResponse is one entry of the refresh history
type RefreshRecordResponse struct {
	ID            string    `json:"id"`
	Trigger       string    `json:"trigger"`
	Success       bool      `json:"success"`
	Subscriptions int       `json:"subscriptions"`
	Payments      int       `json:"payments"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
}

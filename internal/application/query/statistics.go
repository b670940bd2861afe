package query

import (
	"context"
	"fmt"

	"github.com/bivex/fitness-stats/internal/application/dto"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/service"
)

const (
	MinDaysAhead = 1
	MaxDaysAhead = 365
)

// CacheRefresher brings a stale statistics cache up to date before a read
type CacheRefresher interface {
	RefreshIfExpired(ctx context.Context) error
}

// StatisticsQuery serves the statistics read model
type StatisticsQuery struct {
	manager   *service.StatisticsManager
	refresher CacheRefresher
}

// NewStatisticsQuery creates a new statistics query
func NewStatisticsQuery(manager *service.StatisticsManager, refresher CacheRefresher) *StatisticsQuery {
	return &StatisticsQuery{
		manager:   manager,
		refresher: refresher,
	}
}

// GetStatistics returns the full statistics overview
func (q *StatisticsQuery) GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	if err := q.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return toStatisticsResponse(q.manager.GetStatistics()), nil
}

// GetRevenueBreakdown returns revenue by period
func (q *StatisticsQuery) GetRevenueBreakdown(ctx context.Context) (*dto.RevenueBreakdownResponse, error) {
	if err := q.ensureFresh(ctx); err != nil {
		return nil, err
	}
	resp := toRevenueResponse(q.manager.GetRevenueBreakdown())
	return &resp, nil
}

// GetSubscriptionTrends returns the last twelve months, oldest first
func (q *StatisticsQuery) GetSubscriptionTrends(ctx context.Context) ([]dto.SubscriptionTrendResponse, error) {
	if err := q.ensureFresh(ctx); err != nil {
		return nil, err
	}

	trends := q.manager.GetSubscriptionTrends()
	resp := make([]dto.SubscriptionTrendResponse, 0, len(trends))
	for _, t := range trends {
		resp = append(resp, dto.SubscriptionTrendResponse{
			Period:                 t.Period,
			NewSubscriptions:       t.NewSubscriptions,
			CancelledSubscriptions: t.CancelledSubscriptions,
			NetGrowth:              t.NetGrowth,
		})
	}
	return resp, nil
}

// GetExpiringSubscriptions returns active subscriptions ending within daysAhead days
func (q *StatisticsQuery) GetExpiringSubscriptions(ctx context.Context, daysAhead int) ([]dto.ExpiringSubscriptionResponse, error) {
	if daysAhead < MinDaysAhead || daysAhead > MaxDaysAhead {
		return nil, domainErrors.NewValidationError("daysAhead",
			fmt.Sprintf("must be between %d and %d", MinDaysAhead, MaxDaysAhead),
			domainErrors.ErrInvalidDaysAhead)
	}
	if err := q.ensureFresh(ctx); err != nil {
		return nil, err
	}

	expiring := q.manager.GetExpiringSubscriptions(daysAhead)
	resp := make([]dto.ExpiringSubscriptionResponse, 0, len(expiring))
	for _, e := range expiring {
		resp = append(resp, dto.ExpiringSubscriptionResponse{
			SubscriptionID: e.SubscriptionID,
			ClientID:       e.ClientID,
			ClientName:     e.ClientName,
			PlanType:       e.PlanType,
			EndDate:        e.EndDate,
			DaysRemaining:  e.DaysRemaining,
		})
	}
	return resp, nil
}

// GetCacheInfo describes the cache without refreshing it
func (q *StatisticsQuery) GetCacheInfo(ctx context.Context) *dto.CacheInfoResponse {
	info := q.manager.GetCacheInfo()

	resp := &dto.CacheInfoResponse{
		IsExpired:           info.IsExpired,
		CachedSubscriptions: info.CachedSubscriptions,
		CachedPayments:      info.CachedPayments,
		TTLSeconds:          int64(info.TTL.Seconds()),
	}
	if !info.LastUpdate.IsZero() {
		lastUpdate, expiresAt := info.LastUpdate, info.ExpiresAt
		resp.LastUpdate = &lastUpdate
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// GetDashboard returns the compact dashboard summary
func (q *StatisticsQuery) GetDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	if err := q.ensureFresh(ctx); err != nil {
		return nil, err
	}

	stats := q.manager.GetStatistics()
	revenue := q.manager.GetRevenueBreakdown()

	return &dto.DashboardResponse{
		TotalSubscriptions:  stats.TotalSubscriptions,
		ActiveSubscriptions: stats.ActiveSubscriptions,
		TotalRevenue:        dto.Round2(stats.TotalRevenue),
		MonthlyRevenue:      dto.Round2(stats.MonthlyRevenue),
		GrowthRate:          dto.Round2(stats.GrowthRate),
		ChurnRate:           dto.Round2(stats.ChurnRate),
		Revenue:             toRevenueResponse(revenue),
		CalculatedAt:        stats.CalculatedAt,
	}, nil
}

func (q *StatisticsQuery) ensureFresh(ctx context.Context) error {
	if q.refresher == nil {
		return nil
	}
	if err := q.refresher.RefreshIfExpired(ctx); err != nil {
		return fmt.Errorf("failed to refresh statistics: %w", err)
	}
	return nil
}

func toStatisticsResponse(s *service.StatisticsResult) *dto.StatisticsResponse {
	byType := make(map[string]int, len(s.SubscriptionsByType))
	for k, v := range s.SubscriptionsByType {
		byType[k] = v
	}

	return &dto.StatisticsResponse{
		TotalSubscriptions:       s.TotalSubscriptions,
		ActiveSubscriptions:      s.ActiveSubscriptions,
		PendingSubscriptions:     s.PendingSubscriptions,
		ExpiredSubscriptions:     s.ExpiredSubscriptions,
		CancelledSubscriptions:   s.CancelledSubscriptions,
		ActivePercentage:         dto.Round2(s.ActivePercentage),
		PendingPercentage:        dto.Round2(s.PendingPercentage),
		ExpiredPercentage:        dto.Round2(s.ExpiredPercentage),
		CancelledPercentage:      dto.Round2(s.CancelledPercentage),
		TotalRevenue:             dto.Round2(s.TotalRevenue),
		MonthlyRevenue:           dto.Round2(s.MonthlyRevenue),
		YearlyRevenue:            dto.Round2(s.YearlyRevenue),
		AverageSubscriptionValue: dto.Round2(s.AverageSubscriptionValue),
		TotalPayments:            s.TotalPayments,
		SuccessfulPayments:       s.SuccessfulPayments,
		FailedPayments:           s.FailedPayments,
		PendingPayments:          s.PendingPayments,
		PaymentSuccessRate:       dto.Round2(s.PaymentSuccessRate),
		GrowthRate:               dto.Round2(s.GrowthRate),
		ChurnRate:                dto.Round2(s.ChurnRate),
		SubscriptionsByType:      byType,
		CalculatedAt:             s.CalculatedAt,
		CacheExpiresAt:           s.CacheExpiresAt,
	}
}

func toRevenueResponse(r *service.RevenueResult) dto.RevenueBreakdownResponse {
	return dto.RevenueBreakdownResponse{
		Today:     dto.Round2(r.Today),
		ThisWeek:  dto.Round2(r.ThisWeek),
		ThisMonth: dto.Round2(r.ThisMonth),
		ThisYear:  dto.Round2(r.ThisYear),
		AllTime:   dto.Round2(r.AllTime),
	}
}

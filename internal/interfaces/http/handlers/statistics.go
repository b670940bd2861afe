package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/application/command"
	"github.com/bivex/fitness-stats/internal/application/query"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/interfaces/http/response"
)

// statusClientClosedRequest is the nginx convention for a request abandoned by the client
const statusClientClosedRequest = 499

// StatisticsHandler handles HTTP requests for subscription and payment statistics
type StatisticsHandler struct {
	statsQuery       *query.StatisticsQuery
	historyQuery     *query.RefreshHistoryQuery
	refreshCmd       *command.RefreshStatisticsCommand
	clearCmd         *command.ClearStatisticsCacheCommand
	defaultDaysAhead int
	logger           *zap.Logger
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(
	statsQuery *query.StatisticsQuery,
	historyQuery *query.RefreshHistoryQuery,
	refreshCmd *command.RefreshStatisticsCommand,
	clearCmd *command.ClearStatisticsCacheCommand,
	defaultDaysAhead int,
	logger *zap.Logger,
) *StatisticsHandler {
	if defaultDaysAhead < query.MinDaysAhead || defaultDaysAhead > query.MaxDaysAhead {
		defaultDaysAhead = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsHandler{
		statsQuery:       statsQuery,
		historyQuery:     historyQuery,
		refreshCmd:       refreshCmd,
		clearCmd:         clearCmd,
		defaultDaysAhead: defaultDaysAhead,
		logger:           logger,
	}
}

// RegisterRoutes mounts the statistics endpoints on group. refreshLimit, when
// non-nil, guards the manual refresh endpoint.
func (h *StatisticsHandler) RegisterRoutes(group *gin.RouterGroup, refreshLimit gin.HandlerFunc) {
	stats := group.Group("/statistics")
	stats.GET("", h.GetStatistics)
	stats.GET("/revenue", h.GetRevenueBreakdown)
	stats.GET("/trends", h.GetSubscriptionTrends)
	stats.GET("/expiring", h.GetExpiringSubscriptions)
	stats.GET("/cache-info", h.GetCacheInfo)
	stats.GET("/dashboard", h.GetDashboard)
	stats.GET("/refresh-history", h.GetRefreshHistory)

	if refreshLimit != nil {
		stats.POST("/refresh", refreshLimit, h.RefreshCache)
	} else {
		stats.POST("/refresh", h.RefreshCache)
	}
	stats.DELETE("/cache", h.ClearCache)
}

// GetStatistics returns the full statistics overview
// @Summary Get subscription and payment statistics
// @Tags statistics
// @Produce json
// @Router /v1/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statsQuery.GetStatistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to get statistics")
		return
	}
	response.OK(c, stats)
}

// GetRevenueBreakdown returns revenue by period
// @Summary Get revenue breakdown
// @Tags statistics
// @Produce json
// @Router /v1/statistics/revenue [get]
func (h *StatisticsHandler) GetRevenueBreakdown(c *gin.Context) {
	revenue, err := h.statsQuery.GetRevenueBreakdown(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to get revenue breakdown")
		return
	}
	response.OK(c, revenue)
}

// GetSubscriptionTrends returns twelve months of subscription movement
// @Summary Get subscription trends
// @Tags statistics
// @Produce json
// @Router /v1/statistics/trends [get]
func (h *StatisticsHandler) GetSubscriptionTrends(c *gin.Context) {
	trends, err := h.statsQuery.GetSubscriptionTrends(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to get subscription trends")
		return
	}
	response.OK(c, trends)
}

// GetExpiringSubscriptions returns active subscriptions ending soon
// @Summary Get expiring subscriptions
// @Tags statistics
// @Produce json
// @Param daysAhead query int false "Look-ahead window in days (1-365)"
// @Router /v1/statistics/expiring [get]
func (h *StatisticsHandler) GetExpiringSubscriptions(c *gin.Context) {
	daysAhead := h.defaultDaysAhead
	if raw := c.Query("daysAhead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(c, domainErrors.NewValidationError("daysAhead", "must be an integer", domainErrors.ErrInvalidInput), "Invalid daysAhead")
			return
		}
		daysAhead = parsed
	}

	expiring, err := h.statsQuery.GetExpiringSubscriptions(c.Request.Context(), daysAhead)
	if err != nil {
		h.handleError(c, err, "Failed to get expiring subscriptions")
		return
	}
	response.OK(c, expiring)
}

// GetCacheInfo returns the cache state without refreshing it
// @Summary Get statistics cache info
// @Tags statistics
// @Produce json
// @Router /v1/statistics/cache-info [get]
func (h *StatisticsHandler) GetCacheInfo(c *gin.Context) {
	response.OK(c, h.statsQuery.GetCacheInfo(c.Request.Context()))
}

// GetDashboard returns the dashboard summary
// @Summary Get dashboard summary
// @Tags statistics
// @Produce json
// @Router /v1/statistics/dashboard [get]
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.statsQuery.GetDashboard(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "Failed to get dashboard")
		return
	}
	response.OK(c, dashboard)
}

// GetRefreshHistory returns recent refresh attempts
// @Summary Get refresh history
// @Tags statistics
// @Produce json
// @Param limit query int false "Number of records"
// @Router /v1/statistics/refresh-history [get]
func (h *StatisticsHandler) GetRefreshHistory(c *gin.Context) {
	limit := query.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.handleError(c, domainErrors.NewValidationError("limit", "must be a positive integer", domainErrors.ErrInvalidInput), "Invalid limit")
			return
		}
		limit = parsed
	}

	history, err := h.historyQuery.Execute(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err, "Failed to get refresh history")
		return
	}
	response.OK(c, history)
}

// RefreshCache reloads the cache from the database
// @Summary Refresh statistics cache
// @Tags statistics
// @Produce json
// @Router /v1/statistics/refresh [post]
func (h *StatisticsHandler) RefreshCache(c *gin.Context) {
	result, err := h.refreshCmd.Execute(c.Request.Context(), entity.TriggerManual)
	if err != nil {
		h.handleError(c, err, "Failed to refresh statistics")
		return
	}
	response.OK(c, result)
}

// ClearCache empties the cache
// @Summary Clear statistics cache
// @Tags statistics
// @Produce json
// @Router /v1/statistics/cache [delete]
func (h *StatisticsHandler) ClearCache(c *gin.Context) {
	response.OK(c, h.clearCmd.Execute(c.Request.Context()))
}

func (h *StatisticsHandler) handleError(c *gin.Context, err error, message string) {
	logger := h.logger.With(zap.String("request_id", c.GetString("request_id")))

	var validationErr *domainErrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(c, validationErr.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing is listening for the body
		logger.Debug(message, zap.Error(err))
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, domainErrors.ErrStatisticsSourceUnavailable),
		errors.Is(err, domainErrors.ErrStatisticsRefreshFailed):
		logger.Warn(message, zap.Error(err))
		response.ServiceUnavailable(c, "Statistics are temporarily unavailable")
	case errors.Is(err, domainErrors.ErrRefreshHistoryUnavailable):
		logger.Warn(message, zap.Error(err))
		response.ServiceUnavailable(c, "Refresh history is unavailable")
	default:
		logger.Error(message, zap.Error(err))
		response.InternalError(c, message)
	}
}

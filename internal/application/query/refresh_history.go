package query

import (
	"context"
	"fmt"

	"github.com/bivex/fitness-stats/internal/application/dto"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/repository"
)

// DefaultHistoryLimit is used when the caller does not ask for a size
const DefaultHistoryLimit = 20

// RefreshHistoryQuery lists recent statistics refreshes
type RefreshHistoryQuery struct {
	historyRepo repository.RefreshHistoryRepository
}

// NewRefreshHistoryQuery creates a new refresh history query
func NewRefreshHistoryQuery(historyRepo repository.RefreshHistoryRepository) *RefreshHistoryQuery {
	return &RefreshHistoryQuery{historyRepo: historyRepo}
}

// Execute returns up to limit refresh records, newest first
func (q *RefreshHistoryQuery) Execute(ctx context.Context, limit int) ([]dto.RefreshRecordResponse, error) {
	if q.historyRepo == nil {
		return nil, domainErrors.ErrRefreshHistoryUnavailable
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}

	records, err := q.historyRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh history: %w", err)
	}

	resp := make([]dto.RefreshRecordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, dto.RefreshRecordResponse{
			ID:            r.ID.String(),
			Trigger:       string(r.Trigger),
			Success:       r.Success,
			Subscriptions: r.Subscriptions,
			Payments:      r.Payments,
			Error:         r.Error,
			StartedAt:     r.StartedAt,
			DurationMs:    r.Duration.Milliseconds(),
		})
	}
	return resp, nil
}

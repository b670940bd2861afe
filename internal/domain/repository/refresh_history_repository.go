package repository

import (
	"context"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// RefreshHistoryRepository keeps a bounded, newest-first log of refresh attempts
type RefreshHistoryRepository interface {
	Record(ctx context.Context, record *entity.RefreshRecord) error
	List(ctx context.Context, limit int) ([]entity.RefreshRecord, error)
}

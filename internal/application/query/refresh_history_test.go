package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/fitness-stats/internal/application/query"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/tests/mocks"
)

func TestRefreshHistoryQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("maps records", func(t *testing.T) {
		repo := mocks.NewMockRefreshHistoryRepository()
		rec := entity.NewRefreshRecord(entity.TriggerScheduled, now)
		rec.Succeed(4, 9, now.Add(1500*time.Millisecond))
		repo.On("List", ctx, query.DefaultHistoryLimit).Return([]entity.RefreshRecord{*rec}, nil)

		history, err := query.NewRefreshHistoryQuery(repo).Execute(ctx, 0)

		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, rec.ID.String(), history[0].ID)
		assert.Equal(t, "scheduled", history[0].Trigger)
		assert.Equal(t, int64(1500), history[0].DurationMs)
		repo.AssertExpectations(t)
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		repo := mocks.NewMockRefreshHistoryRepository()
		repo.On("List", ctx, 5).Return(nil, errors.New("redis down"))

		_, err := query.NewRefreshHistoryQuery(repo).Execute(ctx, 5)
		assert.ErrorContains(t, err, "redis down")
	})

	t.Run("missing store is unavailable", func(t *testing.T) {
		_, err := query.NewRefreshHistoryQuery(nil).Execute(ctx, 5)
		assert.ErrorIs(t, err, domainErrors.ErrRefreshHistoryUnavailable)
	})
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// MockRefreshHistoryRepository is a mock implementation of RefreshHistoryRepository
type MockRefreshHistoryRepository struct {
	mock.Mock
}

// NewMockRefreshHistoryRepository creates a new mock refresh history repository
func NewMockRefreshHistoryRepository() *MockRefreshHistoryRepository {
	return &MockRefreshHistoryRepository{}
}

func (m *MockRefreshHistoryRepository) Record(ctx context.Context, record *entity.RefreshRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRefreshHistoryRepository) List(ctx context.Context, limit int) ([]entity.RefreshRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RefreshRecord), args.Error(1)
}

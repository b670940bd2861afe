package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

// NewMockSubscriptionRepository creates a new mock subscription repository
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{}
}

func (m *MockSubscriptionRepository) ListAllWithDetails(ctx context.Context) ([]entity.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Subscription), args.Error(1)
}

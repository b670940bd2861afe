package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

// NewMockPaymentRepository creates a new mock payment repository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{}
}

func (m *MockPaymentRepository) ListAll(ctx context.Context) ([]entity.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Payment), args.Error(1)
}

package repository

import (
	"context"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// ListAll returns every payment regardless of status
	ListAll(ctx context.Context) ([]entity.Payment, error)
}

package repository

import (
	"context"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	// ListAllWithDetails returns every subscription enriched with the
	// client's full name and the plan type
	ListAllWithDetails(ctx context.Context) ([]entity.Subscription, error)
}

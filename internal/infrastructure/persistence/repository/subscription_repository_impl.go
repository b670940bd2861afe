package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/fitness-stats/internal/domain/entity"
	"github.com/bivex/fitness-stats/internal/domain/repository"
)

const listSubscriptionsWithDetails = `
	SELECT
		s.id,
		s.client_id,
		COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
		COALESCE(p.type, ''),
		s.status,
		s.start_date,
		s.end_date,
		s.auto_renew,
		s.created_at,
		s.updated_at
	FROM subscriptions s
	LEFT JOIN clients c ON c.id = s.client_id
	LEFT JOIN users u ON u.id = c.user_id
	LEFT JOIN subscription_plans p ON p.id = s.subscription_plan_id
	ORDER BY s.id
`

type subscriptionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository implementation
func NewSubscriptionRepository(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepositoryImpl{pool: pool}
}

func (r *subscriptionRepositoryImpl) ListAllWithDetails(ctx context.Context) ([]entity.Subscription, error) {
	rows, err := r.pool.Query(ctx, listSubscriptionsWithDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	subscriptions, err := pgx.CollectRows(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
	}

	return subscriptions, nil
}

func scanSubscription(row pgx.CollectableRow) (entity.Subscription, error) {
	var (
		sub      entity.Subscription
		planType string
		status   string
		endDate  *time.Time
	)

	err := row.Scan(
		&sub.ID,
		&sub.ClientID,
		&sub.ClientName,
		&planType,
		&status,
		&sub.StartDate,
		&endDate,
		&sub.AutoRenew,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return entity.Subscription{}, err
	}

	sub.PlanType = entity.PlanType(planType)
	sub.Status = entity.SubscriptionStatus(status)
	sub.StartDate = sub.StartDate.UTC()
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	if endDate != nil {
		end := endDate.UTC()
		sub.EndDate = &end
	}

	return sub, nil
}

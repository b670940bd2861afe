package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seeder inserts fixture rows into the statistics schema
type Seeder struct {
	pool *pgxpool.Pool
}

func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

// SubscriptionRow describes a subscriptions row to insert
type SubscriptionRow struct {
	ClientID  int64
	PlanID    int64
	Status    string
	StartDate time.Time
	EndDate   *time.Time
	AutoRenew bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentRow describes a payments row to insert
type PaymentRow struct {
	SubscriptionID    int64
	Amount            string
	Status            string
	PaymentDate       time.Time
	InstallmentNumber int
	TransactionID     *string
}

// Client inserts a user and its client record, returning the client id
func (s *Seeder) Client(ctx context.Context, firstName, lastName, email string) (int64, error) {
	var userID, clientID int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id`,
		firstName, lastName, email,
	).Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("failed to seed user: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO clients (user_id) VALUES ($1) RETURNING id`, userID,
	).Scan(&clientID)
	if err != nil {
		return 0, fmt.Errorf("failed to seed client: %w", err)
	}
	return clientID, nil
}

// Plan inserts a subscription plan and returns its id
func (s *Seeder) Plan(ctx context.Context, name, planType, price string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO subscription_plans (name, type, price) VALUES ($1, $2, $3::numeric) RETURNING id`,
		name, planType, price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to seed plan: %w", err)
	}
	return id, nil
}

// Subscription inserts a subscription and returns its id
func (s *Seeder) Subscription(ctx context.Context, row SubscriptionRow) (int64, error) {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions
			(client_id, subscription_plan_id, start_date, end_date, status, auto_renew, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		row.ClientID, row.PlanID, row.StartDate, row.EndDate, row.Status, row.AutoRenew, row.CreatedAt, row.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to seed subscription: %w", err)
	}
	return id, nil
}

// Payment inserts a payment and returns its id
func (s *Seeder) Payment(ctx context.Context, row PaymentRow) (int64, error) {
	if row.InstallmentNumber == 0 {
		row.InstallmentNumber = 1
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO payments
			(subscription_id, amount, payment_date, status, installment_number, transaction_id)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		RETURNING id`,
		row.SubscriptionID, row.Amount, row.PaymentDate, row.Status, row.InstallmentNumber, row.TransactionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to seed payment: %w", err)
	}
	return id, nil
}

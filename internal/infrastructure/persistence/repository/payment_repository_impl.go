package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bivex/fitness-stats/internal/domain/entity"
	"github.com/bivex/fitness-stats/internal/domain/repository"
)

// amount is read as text so NUMERIC keeps its exact scale in decimal.Decimal
const listPayments = `
	SELECT
		id,
		subscription_id,
		amount::text,
		status,
		payment_date,
		installment_number,
		COALESCE(transaction_id, '')
	FROM payments
	ORDER BY id
`

type paymentRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new payment repository implementation
func NewPaymentRepository(pool *pgxpool.Pool) repository.PaymentRepository {
	return &paymentRepositoryImpl{pool: pool}
}

func (r *paymentRepositoryImpl) ListAll(ctx context.Context) ([]entity.Payment, error) {
	rows, err := r.pool.Query(ctx, listPayments)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payments: %w", err)
	}

	return payments, nil
}

func scanPayment(row pgx.CollectableRow) (entity.Payment, error) {
	var (
		p      entity.Payment
		amount string
		status string
	)

	if err := row.Scan(
		&p.ID,
		&p.SubscriptionID,
		&amount,
		&status,
		&p.PaymentDate,
		&p.InstallmentNumber,
		&p.TransactionID,
	); err != nil {
		return entity.Payment{}, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return entity.Payment{}, fmt.Errorf("invalid amount for payment %d: %w", p.ID, err)
	}

	p.Amount = parsed
	p.Status = entity.PaymentStatus(status)
	p.PaymentDate = p.PaymentDate.UTC()

	return p, nil
}

package testutil

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// SubscriptionFactory creates test subscription records
type SubscriptionFactory struct {
	nextID atomic.Int64
}

func NewSubscriptionFactory() *SubscriptionFactory {
	return &SubscriptionFactory{}
}

// Create builds a subscription created (and last updated) at createdAt
func (f *SubscriptionFactory) Create(status entity.SubscriptionStatus, planType entity.PlanType, createdAt time.Time) entity.Subscription {
	id := f.nextID.Add(1)
	return entity.Subscription{
		ID:         id,
		ClientID:   1000 + id,
		ClientName: "Test Client",
		PlanType:   planType,
		Status:     status,
		StartDate:  createdAt,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
		AutoRenew:  true,
	}
}

// CreateActive builds an active monthly subscription
func (f *SubscriptionFactory) CreateActive(createdAt time.Time) entity.Subscription {
	return f.Create(entity.StatusActive, entity.PlanMonthly, createdAt)
}

// CreateExpiring builds an active subscription ending at endDate
func (f *SubscriptionFactory) CreateExpiring(createdAt, endDate time.Time) entity.Subscription {
	sub := f.CreateActive(createdAt)
	sub.EndDate = &endDate
	return sub
}

// CreateCancelled builds a subscription cancelled at cancelledAt
func (f *SubscriptionFactory) CreateCancelled(createdAt, cancelledAt time.Time) entity.Subscription {
	sub := f.Create(entity.StatusCancelled, entity.PlanMonthly, createdAt)
	sub.UpdatedAt = cancelledAt
	sub.AutoRenew = false
	return sub
}

// PaymentFactory creates test payment records
type PaymentFactory struct {
	nextID atomic.Int64
}

func NewPaymentFactory() *PaymentFactory {
	return &PaymentFactory{}
}

// Create builds a payment of amount against subscriptionID
func (f *PaymentFactory) Create(subscriptionID int64, amount string, status entity.PaymentStatus, paidAt time.Time) entity.Payment {
	return entity.Payment{
		ID:                f.nextID.Add(1),
		SubscriptionID:    subscriptionID,
		Amount:            decimal.RequireFromString(amount),
		Status:            status,
		PaymentDate:       paidAt,
		InstallmentNumber: 1,
		TransactionID:     "txn_" + uuid.New().String()[:8],
	}
}

// CreateSuccessful builds a settled payment
func (f *PaymentFactory) CreateSuccessful(subscriptionID int64, amount string, paidAt time.Time) entity.Payment {
	return f.Create(subscriptionID, amount, entity.PaymentStatusSuccess, paidAt)
}

// CreateFailed builds a failed payment
func (f *PaymentFactory) CreateFailed(subscriptionID int64, amount string, paidAt time.Time) entity.Payment {
	return f.Create(subscriptionID, amount, entity.PaymentStatusFailed, paidAt)
}

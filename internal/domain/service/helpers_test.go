package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// referenceNow is the fixed "now" used across the statistics tests
var referenceNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func subscription(id int64, status entity.SubscriptionStatus, createdAt time.Time) entity.Subscription {
	return entity.Subscription{
		ID:         id,
		ClientID:   id * 10,
		ClientName: "Client",
		PlanType:   entity.PlanMonthly,
		Status:     status,
		StartDate:  createdAt,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func payment(id int64, amount int64, status entity.PaymentStatus, paidAt time.Time) entity.Payment {
	return entity.Payment{
		ID:                id,
		SubscriptionID:    1,
		Amount:            decimal.NewFromInt(amount),
		Status:            status,
		PaymentDate:       paidAt,
		InstallmentNumber: 1,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

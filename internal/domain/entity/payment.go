package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment is a single installment paid against a subscription
type Payment struct {
	ID                int64
	SubscriptionID    int64
	Amount            decimal.Decimal
	Status            PaymentStatus
	PaymentDate       time.Time
	InstallmentNumber int
	TransactionID     string
}

// IsSuccessful returns true if the payment was successful
func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSuccess
}

// IsFailed returns true if the payment failed
func (p *Payment) IsFailed() bool {
	return p.Status == PaymentStatusFailed
}

// IsPending returns true if the payment is awaiting settlement
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

package entity

import (
	"time"
)

type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// IsValid reports whether the status is one of the known lifecycle states
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

type PlanType string

const (
	PlanMonthly    PlanType = "Monthly"
	PlanQuarterly  PlanType = "Quarterly"
	PlanYearly     PlanType = "Yearly"
	PlanIndividual PlanType = "Individual"
	PlanStudentFit PlanType = "StudentFit"

	// UnknownLabel is reported for records missing a client or plan
	UnknownLabel = "Unknown"
)

// Label returns the plan type, or UnknownLabel when it is missing
func (p PlanType) Label() string {
	if p == "" {
		return UnknownLabel
	}
	return string(p)
}

// Subscription is a read-only projection of a client subscription enriched
// with the client's display name and the plan type.
type Subscription struct {
	ID         int64
	ClientID   int64
	ClientName string
	PlanType   PlanType
	Status     SubscriptionStatus
	StartDate  time.Time
	EndDate    *time.Time
	AutoRenew  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive returns true if the subscription status is active
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsCancelled returns true if the subscription has been cancelled
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// HasEndDate returns true if the subscription has a fixed end date
func (s *Subscription) HasEndDate() bool {
	return s.EndDate != nil
}

// DisplayClientName returns the client name, or UnknownLabel when it is missing
func (s *Subscription) DisplayClientName() string {
	if s.ClientName == "" {
		return UnknownLabel
	}
	return s.ClientName
}

// Clone returns a copy that shares no memory with s
func (s Subscription) Clone() Subscription {
	if s.EndDate != nil {
		end := *s.EndDate
		s.EndDate = &end
	}
	return s
}

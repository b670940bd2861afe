package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTrigger names what caused a cache refresh
type RefreshTrigger string

const (
	TriggerOnDemand  RefreshTrigger = "on_demand"
	TriggerManual    RefreshTrigger = "manual"
	TriggerScheduled RefreshTrigger = "scheduled"
	TriggerWarmup    RefreshTrigger = "warmup"
)

// RefreshRecord describes one attempt to reload the statistics snapshot
type RefreshRecord struct {
	ID            uuid.UUID
	Trigger       RefreshTrigger
	Success       bool
	Subscriptions int
	Payments      int
	Error         string
	StartedAt     time.Time
	Duration      time.Duration
}

// NewRefreshRecord starts a record for a refresh beginning at startedAt
func NewRefreshRecord(trigger RefreshTrigger, startedAt time.Time) *RefreshRecord {
	return &RefreshRecord{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: startedAt.UTC(),
	}
}

// Succeed marks the record as successful with the loaded record counts
func (r *RefreshRecord) Succeed(subscriptions, payments int, finishedAt time.Time) {
	r.Success = true
	r.Subscriptions = subscriptions
	r.Payments = payments
	r.Error = ""
	r.Duration = finishedAt.Sub(r.StartedAt)
}

// Fail marks the record as failed
func (r *RefreshRecord) Fail(err error, finishedAt time.Time) {
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	r.Duration = finishedAt.Sub(r.StartedAt)
}

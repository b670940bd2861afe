package service

import (
	"sync"
	"time"

	"github.com/bivex/fitness-stats/internal/domain/entity"
)

// DefaultCacheTTL is used when no positive TTL is configured
const DefaultCacheTTL = 5 * time.Minute

// Generation is one atomically swapped pair of cached collections
type Generation struct {
	Subscriptions []entity.Subscription
	Payments      []entity.Payment
	LastUpdate    time.Time
}

// CacheState describes the cache without copying its records
type CacheState struct {
	LastUpdate    time.Time
	TTL           time.Duration
	Subscriptions int
	Payments      int
	Expired       bool
}

// StatisticsCache holds the last fetched subscriptions and payments.
//
// Stored slices are never mutated after UpdateCache installs them, so readers
// only hold the lock long enough to grab the slice headers and copy outside it.
type StatisticsCache struct {
	mu            sync.Mutex
	subscriptions []entity.Subscription
	payments      []entity.Payment
	lastUpdate    time.Time
	ttl           time.Duration
	clock         Clock
}

// NewStatisticsCache creates an empty, already expired cache
func NewStatisticsCache(ttl time.Duration, clock Clock) *StatisticsCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &StatisticsCache{
		subscriptions: []entity.Subscription{},
		payments:      []entity.Payment{},
		ttl:           ttl,
		clock:         clock,
	}
}

// UpdateCache replaces both collections and stamps the generation with the current time
func (c *StatisticsCache) UpdateCache(subscriptions []entity.Subscription, payments []entity.Payment) {
	subs := copySubscriptions(subscriptions)
	pays := copyPayments(payments)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscriptions = subs
	c.payments = pays
	c.lastUpdate = c.clock.Now()
}

// IsExpired reports whether more than the TTL has elapsed since the last update
func (c *StatisticsCache) IsExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.expiredLocked(c.clock.Now())
}

// Clear empties the cache and marks it expired
func (c *StatisticsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscriptions = []entity.Subscription{}
	c.payments = []entity.Payment{}
	c.lastUpdate = time.Time{}
}

// GetCachedSubscriptions returns a copy of the cached subscriptions
func (c *StatisticsCache) GetCachedSubscriptions() []entity.Subscription {
	c.mu.Lock()
	subs := c.subscriptions
	c.mu.Unlock()

	return copySubscriptions(subs)
}

// GetCachedPayments returns a copy of the cached payments
func (c *StatisticsCache) GetCachedPayments() []entity.Payment {
	c.mu.Lock()
	pays := c.payments
	c.mu.Unlock()

	return copyPayments(pays)
}

// Snapshot returns copies of both collections taken from the same generation
func (c *StatisticsCache) Snapshot() Generation {
	c.mu.Lock()
	subs, pays, lastUpdate := c.subscriptions, c.payments, c.lastUpdate
	c.mu.Unlock()

	return Generation{
		Subscriptions: copySubscriptions(subs),
		Payments:      copyPayments(pays),
		LastUpdate:    lastUpdate,
	}
}

// State returns cache metadata captured under a single lock
func (c *StatisticsCache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheState{
		LastUpdate:    c.lastUpdate,
		TTL:           c.ttl,
		Subscriptions: len(c.subscriptions),
		Payments:      len(c.payments),
		Expired:       c.expiredLocked(c.clock.Now()),
	}
}

// LastUpdate returns the time of the last UpdateCache, or the zero time for a cold cache
func (c *StatisticsCache) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastUpdate
}

// TTL returns the configured time-to-live
func (c *StatisticsCache) TTL() time.Duration {
	return c.ttl
}

func (c *StatisticsCache) expiredLocked(now time.Time) bool {
	// the zero lastUpdate saturates Sub at the maximum duration
	return now.Sub(c.lastUpdate) > c.ttl
}

func copySubscriptions(src []entity.Subscription) []entity.Subscription {
	dst := make([]entity.Subscription, len(src))
	for i := range src {
		dst[i] = src[i].Clone()
	}
	return dst
}

func copyPayments(src []entity.Payment) []entity.Payment {
	dst := make([]entity.Payment, len(src))
	copy(dst, src)
	return dst
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/repository"
)

// KeyRefreshHistory is the Redis list holding serialized refresh records, newest first
const KeyRefreshHistory = "statistics:refresh_history"

type refreshRecordPayload struct {
	ID            string    `json:"id"`
	Trigger       string    `json:"trigger"`
	Success       bool      `json:"success"`
	Subscriptions int       `json:"subscriptions"`
	Payments      int       `json:"payments"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
}

// RefreshHistoryCache stores refresh records in a capped Redis list
type RefreshHistoryCache struct {
	client  *redis.Client
	logger  *zap.Logger
	maxSize int
	ttl     time.Duration
}

// NewRefreshHistoryCache creates a new refresh history store
func NewRefreshHistoryCache(client *redis.Client, maxSize int, ttl time.Duration, logger *zap.Logger) repository.RefreshHistoryRepository {
	if maxSize < 1 {
		maxSize = 1
	}
	return &RefreshHistoryCache{
		client:  client,
		logger:  logger,
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Record pushes a record and trims the list to the configured size
func (c *RefreshHistoryCache) Record(ctx context.Context, record *entity.RefreshRecord) error {
	data, err := json.Marshal(toPayload(record))
	if err != nil {
		return fmt.Errorf("failed to marshal refresh record: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, KeyRefreshHistory, data)
	pipe.LTrim(ctx, KeyRefreshHistory, 0, int64(c.maxSize-1))
	if c.ttl > 0 {
		pipe.Expire(ctx, KeyRefreshHistory, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrRefreshHistoryUnavailable, err)
	}

	c.logger.Debug("Recorded statistics refresh",
		zap.String("id", record.ID.String()),
		zap.String("trigger", string(record.Trigger)),
		zap.Bool("success", record.Success),
	)
	return nil
}

// List returns up to limit records, newest first
func (c *RefreshHistoryCache) List(ctx context.Context, limit int) ([]entity.RefreshRecord, error) {
	if limit < 1 || limit > c.maxSize {
		limit = c.maxSize
	}

	raw, err := c.client.LRange(ctx, KeyRefreshHistory, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []entity.RefreshRecord{}, nil
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrRefreshHistoryUnavailable, err)
	}

	records := make([]entity.RefreshRecord, 0, len(raw))
	for _, item := range raw {
		var payload refreshRecordPayload
		if err := json.Unmarshal([]byte(item), &payload); err != nil {
			c.logger.Warn("Skipping malformed refresh record", zap.Error(err))
			continue
		}
		records = append(records, payload.toEntity())
	}

	return records, nil
}

func toPayload(r *entity.RefreshRecord) refreshRecordPayload {
	return refreshRecordPayload{
		ID:            r.ID.String(),
		Trigger:       string(r.Trigger),
		Success:       r.Success,
		Subscriptions: r.Subscriptions,
		Payments:      r.Payments,
		Error:         r.Error,
		StartedAt:     r.StartedAt,
		DurationMs:    r.Duration.Milliseconds(),
	}
}

func (p refreshRecordPayload) toEntity() entity.RefreshRecord {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		id = uuid.Nil
	}
	return entity.RefreshRecord{
		ID:            id,
		Trigger:       entity.RefreshTrigger(p.Trigger),
		Success:       p.Success,
		Subscriptions: p.Subscriptions,
		Payments:      p.Payments,
		Error:         p.Error,
		StartedAt:     p.StartedAt.UTC(),
		Duration:      time.Duration(p.DurationMs) * time.Millisecond,
	}
}

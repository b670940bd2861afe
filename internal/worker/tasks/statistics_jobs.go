package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/application/dto"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
)

// StatisticsRefresher reloads the statistics cache
type StatisticsRefresher interface {
	Execute(ctx context.Context, trigger entity.RefreshTrigger) (*dto.RefreshResponse, error)
}

// StatisticsJobHandler handles statistics background jobs
type StatisticsJobHandler struct {
	refresher StatisticsRefresher
	logger    *zap.Logger
}

// NewStatisticsJobHandler creates a new statistics job handler
func NewStatisticsJobHandler(refresher StatisticsRefresher, logger *zap.Logger) *StatisticsJobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsJobHandler{
		refresher: refresher,
		logger:    logger.With(zap.String("component", "statistics_jobs")),
	}
}

// HandleRefresh reloads the cache on the schedule
func (h *StatisticsJobHandler) HandleRefresh(ctx context.Context, t *asynq.Task) error {
	payload, err := decodePayload(t)
	if err != nil {
		return err
	}
	if payload.Trigger == "" {
		payload.Trigger = entity.TriggerScheduled
	}
	return h.run(ctx, t.Type(), payload.Trigger)
}

// HandleWarmup fills the cache once after the API starts
func (h *StatisticsJobHandler) HandleWarmup(ctx context.Context, t *asynq.Task) error {
	if _, err := decodePayload(t); err != nil {
		return err
	}
	return h.run(ctx, t.Type(), entity.TriggerWarmup)
}

func (h *StatisticsJobHandler) run(ctx context.Context, taskType string, trigger entity.RefreshTrigger) error {
	result, err := h.refresher.Execute(ctx, trigger)
	if err != nil {
		// An open breaker will still be open on retry; wait for the next tick.
		if errors.Is(err, domainErrors.ErrStatisticsSourceUnavailable) {
			h.logger.Warn("Skipping statistics refresh, sources unavailable",
				zap.String("task", taskType),
				zap.Error(err),
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("statistics refresh task failed: %w", err)
	}

	h.logger.Info("Statistics refresh task completed",
		zap.String("task", taskType),
		zap.String("trigger", string(trigger)),
		zap.Int("subscriptions", result.Subscriptions),
		zap.Int("payments", result.Payments),
	)
	return nil
}

func decodePayload(t *asynq.Task) (RefreshPayload, error) {
	var payload RefreshPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

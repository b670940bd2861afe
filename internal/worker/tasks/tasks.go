package tasks

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/domain/entity"
	"github.com/bivex/fitness-stats/internal/infrastructure/logging"
)

// Task names
const (
	TypeRefreshStatistics = "statistics:refresh"
	TypeWarmupStatistics  = "statistics:warmup"
)

// QueueStatistics is served only by the API process, which owns the in-memory cache
const QueueStatistics = "statistics"

// RefreshPayload is the payload of refresh and warmup tasks
type RefreshPayload struct {
	Trigger     entity.RefreshTrigger `json:"trigger"`
	RequestedAt time.Time             `json:"requested_at"`
}

// NewRefreshTask builds a statistics refresh task
func NewRefreshTask(trigger entity.RefreshTrigger, requestedAt time.Time) (*asynq.Task, error) {
	return newStatisticsTask(TypeRefreshStatistics, trigger, requestedAt, asynq.MaxRetry(2))
}

// NewWarmupTask builds the one-off task that fills a cold cache after startup
func NewWarmupTask(requestedAt time.Time) (*asynq.Task, error) {
	return newStatisticsTask(TypeWarmupStatistics, entity.TriggerWarmup, requestedAt, asynq.MaxRetry(5))
}

func newStatisticsTask(typename string, trigger entity.RefreshTrigger, requestedAt time.Time, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshPayload{Trigger: trigger, RequestedAt: requestedAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typename, err)
	}
	opts = append(opts, asynq.Queue(QueueStatistics), asynq.Timeout(time.Minute))
	return asynq.NewTask(typename, payload, opts...), nil
}

// RegisterHandlers registers the statistics task handlers with the server mux.
func RegisterHandlers(mux *asynq.ServeMux, h *StatisticsJobHandler) {
	mux.HandleFunc(TypeRefreshStatistics, h.HandleRefresh)
	mux.HandleFunc(TypeWarmupStatistics, h.HandleWarmup)
}

// RegisterScheduledTasks registers the periodic cache refresh
func RegisterScheduledTasks(scheduler *asynq.Scheduler, cronSpec string) error {
	task, err := NewRefreshTask(entity.TriggerScheduled, time.Time{})
	if err != nil {
		return err
	}

	// Unique keeps a backlog from building up while the API is down.
	entryID, err := scheduler.Register(cronSpec, task, asynq.Unique(time.Minute))
	if err != nil {
		return fmt.Errorf("failed to schedule statistics refresh: %w", err)
	}

	logging.Logger.Info("Scheduled statistics refresh",
		zap.String("cron", cronSpec),
		zap.String("entry_id", entryID),
	)
	return nil
}

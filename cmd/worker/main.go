package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/infrastructure/cache"
	"github.com/bivex/fitness-stats/internal/infrastructure/config"
	"github.com/bivex/fitness-stats/internal/infrastructure/logging"
	worker_tasks "github.com/bivex/fitness-stats/internal/worker/tasks"
)

// The worker only drives the schedule. The statistics cache is in-memory in
// the API process, which serves the statistics queue itself.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(&cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting statistics scheduler",
		zap.String("cron", cfg.Statistics.RefreshCron),
	)

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logging.Logger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisClient.Ping(ctx).Err()
	cancel()
	if err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	scheduler := asynq.NewSchedulerFromRedisClient(redisClient, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logging.Logger.Sugar(),
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logging.Logger.Warn("Scheduled statistics refresh not enqueued", zap.Error(err))
				return
			}
			logging.Logger.Debug("Scheduled statistics refresh enqueued", zap.String("task_id", info.ID))
		},
	})

	if err := worker_tasks.RegisterScheduledTasks(scheduler, cfg.Statistics.RefreshCron); err != nil {
		logging.Logger.Fatal("Failed to register scheduled tasks", zap.Error(err))
	}

	if err := scheduler.Start(); err != nil {
		logging.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logging.Logger.Info("Scheduler started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down scheduler...")
	scheduler.Shutdown()
	logging.Logger.Info("Scheduler exited")
}

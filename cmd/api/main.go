package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/application/command"
	"github.com/bivex/fitness-stats/internal/application/middleware"
	"github.com/bivex/fitness-stats/internal/application/query"
	"github.com/bivex/fitness-stats/internal/domain/service"
	"github.com/bivex/fitness-stats/internal/infrastructure/cache"
	"github.com/bivex/fitness-stats/internal/infrastructure/config"
	"github.com/bivex/fitness-stats/internal/infrastructure/logging"
	"github.com/bivex/fitness-stats/internal/infrastructure/metrics"
	"github.com/bivex/fitness-stats/internal/infrastructure/persistence/pool"
	"github.com/bivex/fitness-stats/internal/infrastructure/persistence/repository"
	app_handler "github.com/bivex/fitness-stats/internal/interfaces/http/handlers"
	worker_tasks "github.com/bivex/fitness-stats/internal/worker/tasks"
)

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

	metrics.MustRegister()

	logging.Logger.Info("Starting statistics API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Sentry.Environment),
		zap.Duration("cache_ttl", cfg.Statistics.CacheTTL),
	)

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

	if err := pool.Ping(ctx, dbPool); err != nil {
		logging.Logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logging.Logger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	// Initialize repositories
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)
	paymentRepo := repository.NewPaymentRepository(dbPool)
	historyRepo := cache.NewRefreshHistoryCache(
		redisClient,
		cfg.Statistics.HistorySize,
		cfg.Statistics.HistoryTTL,
		logging.WithComponent("refresh_history"),
	)

	// Initialize the statistics cache; it lives for the life of the process
	clock := service.SystemClock{}
	statsManager := service.NewStatisticsManager(
		service.NewStatisticsCache(cfg.Statistics.CacheTTL, clock),
		clock,
		logging.Logger,
	)

	// Initialize commands
	refreshCmd := command.NewRefreshStatisticsCommand(
		subscriptionRepo,
		paymentRepo,
		historyRepo,
		statsManager,
		clock,
		command.RefreshConfig{
			Timeout:            cfg.Statistics.RefreshTimeout,
			BreakerMaxFailures: cfg.Statistics.Breaker.MaxFailures,
			BreakerOpenTimeout: cfg.Statistics.Breaker.OpenTimeout,
			BreakerInterval:    cfg.Statistics.Breaker.Interval,
		},
		logging.Logger,
	)
	clearCmd := command.NewClearStatisticsCacheCommand(statsManager, clock)

	// Initialize queries
	statsQuery := query.NewStatisticsQuery(statsManager, refreshCmd)
	historyQuery := query.NewRefreshHistoryQuery(historyRepo)

	// Initialize handlers
	statisticsHandler := app_handler.NewStatisticsHandler(
		statsQuery,
		historyQuery,
		refreshCmd,
		clearCmd,
		cfg.Statistics.DefaultDaysAhead,
		logging.WithComponent("statistics_handler"),
	)

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.FailOpen)
	refreshLimit := rateLimiter.Middleware(middleware.ByIPAndEndpoint, middleware.RateLimitConfig{
		Rate:   cfg.RateLimit.RefreshRate,
		Burst:  cfg.RateLimit.RefreshBurst,
		Period: time.Minute,
	})

	// Scheduled refreshes must land in this process, so the statistics queue
	// is served here rather than by the worker.
	taskServer := asynq.NewServerFromRedisClient(redisClient, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			worker_tasks.QueueStatistics: 1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return time.Duration(1<<uint(n)) * time.Second
		},
		Logger: logging.Logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	worker_tasks.RegisterHandlers(mux, worker_tasks.NewStatisticsJobHandler(refreshCmd, logging.Logger))
	if err := taskServer.Start(mux); err != nil {
		logging.Logger.Fatal("Failed to start task server", zap.Error(err))
	}

	enqueueWarmup(redisClient)

	// Setup Gin router
	if cfg.Sentry.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
		metrics.GinMiddleware(),
	)

	// Liveness
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness checks both backing stores
	router.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := pool.Ping(checkCtx, dbPool); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(checkCtx).Err(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	statisticsHandler.RegisterRoutes(v1, refreshLimit)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	taskServer.Shutdown()

	logging.Logger.Info("Server exited")
}

// enqueueWarmup asks the task server to fill the cold cache. Failure is not
// fatal: the first read refreshes on demand.
func enqueueWarmup(redisClient *redis.Client) {
	task, err := worker_tasks.NewWarmupTask(time.Now())
	if err != nil {
		logging.Logger.Warn("Failed to build warmup task", zap.Error(err))
		return
	}

	client := asynq.NewClientFromRedisClient(redisClient)
	defer client.Close()

	info, err := client.Enqueue(task)
	if err != nil {
		logging.Logger.Warn("Failed to enqueue statistics warmup", zap.Error(err))
		return
	}
	logging.Logger.Info("Statistics warmup enqueued", zap.String("task_id", info.ID))
}

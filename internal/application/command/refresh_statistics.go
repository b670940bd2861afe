package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bivex/fitness-stats/internal/application/dto"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/repository"
	"github.com/bivex/fitness-stats/internal/domain/service"
	"github.com/bivex/fitness-stats/internal/infrastructure/metrics"
)

const (
	refreshFlightKey = "statistics:refresh"

	// historyTimeout bounds the refresh history write, which runs after the
	// fetch deadline may already have passed.
	historyTimeout = 2 * time.Second
)

// RefreshConfig tunes the refresh command
type RefreshConfig struct {
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	BreakerInterval    time.Duration
}

// DefaultRefreshConfig returns the settings used when none are configured
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Timeout:            30 * time.Second,
		BreakerMaxFailures: 3,
		BreakerOpenTimeout: 30 * time.Second,
		BreakerInterval:    time.Minute,
	}
}

type sourceSnapshot struct {
	subscriptions []entity.Subscription
	payments      []entity.Payment
}

// RefreshStatisticsCommand reloads the statistics cache from the database
type RefreshStatisticsCommand struct {
	subscriptionRepo repository.SubscriptionRepository
	paymentRepo      repository.PaymentRepository
	historyRepo      repository.RefreshHistoryRepository
	manager          *service.StatisticsManager
	clock            service.Clock
	breaker          *gobreaker.CircuitBreaker[sourceSnapshot]
	flight           singleflight.Group
	timeout          time.Duration
	logger           *zap.Logger
}

// NewRefreshStatisticsCommand creates a new refresh statistics command.
// historyRepo may be nil, in which case refreshes are not recorded.
func NewRefreshStatisticsCommand(
	subscriptionRepo repository.SubscriptionRepository,
	paymentRepo repository.PaymentRepository,
	historyRepo repository.RefreshHistoryRepository,
	manager *service.StatisticsManager,
	clock service.Clock,
	cfg RefreshConfig,
	logger *zap.Logger,
) *RefreshStatisticsCommand {
	if clock == nil {
		clock = service.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefreshConfig().Timeout
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = DefaultRefreshConfig().BreakerMaxFailures
	}

	logger = logger.With(zap.String("component", "refresh_statistics"))
	maxFailures := cfg.BreakerMaxFailures

	breaker := gobreaker.NewCircuitBreaker[sourceSnapshot](gobreaker.Settings{
		Name:        "statistics-sources",
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Statistics source breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(breakerStateValue(to))
		},
	})

	return &RefreshStatisticsCommand{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		historyRepo:      historyRepo,
		manager:          manager,
		clock:            clock,
		breaker:          breaker,
		timeout:          cfg.Timeout,
		logger:           logger,
	}
}

// Execute fetches a new snapshot and installs it in the cache.
// Concurrent callers share one in-flight refresh.
func (c *RefreshStatisticsCommand) Execute(ctx context.Context, trigger entity.RefreshTrigger) (*dto.RefreshResponse, error) {
	ch := c.flight.DoChan(refreshFlightKey, func() (interface{}, error) {
		return c.refresh(ctx, trigger)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dto.RefreshResponse), nil
	}
}

// RefreshIfExpired refreshes the cache only when it is stale. A failed refresh
// over a previously populated cache is logged and the stale data is kept.
func (c *RefreshStatisticsCommand) RefreshIfExpired(ctx context.Context) error {
	if !c.manager.IsCacheExpired() {
		return nil
	}

	_, err := c.Execute(ctx, entity.TriggerOnDemand)
	if err == nil {
		return nil
	}

	if c.manager.LastUpdate().IsZero() {
		return err
	}

	metrics.IncServedStale()
	c.logger.Warn("Serving stale statistics after failed refresh",
		zap.Time("last_update", c.manager.LastUpdate()),
		zap.Error(err),
	)
	return nil
}

func (c *RefreshStatisticsCommand) refresh(ctx context.Context, trigger entity.RefreshTrigger) (*dto.RefreshResponse, error) {
	// The shared flight must not die with whichever caller happened to start it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	started := time.Now()
	record := entity.NewRefreshRecord(trigger, c.clock.Now())

	snapshot, err := c.breaker.Execute(func() (sourceSnapshot, error) {
		return c.fetch(fetchCtx)
	})
	if err != nil {
		result := metrics.RefreshFailure
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = metrics.RefreshBreakerOpen
			err = fmt.Errorf("%w: %v", domainErrors.ErrStatisticsSourceUnavailable, err)
		} else {
			err = fmt.Errorf("%w: %w", domainErrors.ErrStatisticsRefreshFailed, err)
		}

		metrics.ObserveRefresh(result, time.Since(started))
		record.Fail(err, c.clock.Now())
		c.recordHistory(ctx, record)

		c.logger.Error("Statistics refresh failed",
			zap.String("trigger", string(trigger)),
			zap.String("result", result),
			zap.Error(err),
		)
		return nil, err
	}

	c.manager.UpdateCache(snapshot.subscriptions, snapshot.payments)

	now := c.clock.Now()
	metrics.ObserveRefresh(metrics.RefreshSuccess, time.Since(started))
	metrics.SetCachedRecords(len(snapshot.subscriptions), len(snapshot.payments))
	record.Succeed(len(snapshot.subscriptions), len(snapshot.payments), now)
	c.recordHistory(ctx, record)

	c.logger.Info("Statistics refreshed",
		zap.String("trigger", string(trigger)),
		zap.Int("subscriptions", len(snapshot.subscriptions)),
		zap.Int("payments", len(snapshot.payments)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &dto.RefreshResponse{
		Message:       "Statistics cache refreshed",
		Timestamp:     now,
		Subscriptions: len(snapshot.subscriptions),
		Payments:      len(snapshot.payments),
	}, nil
}

func (c *RefreshStatisticsCommand) fetch(ctx context.Context) (sourceSnapshot, error) {
	var snapshot sourceSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subs, err := c.subscriptionRepo.ListAllWithDetails(gctx)
		if err != nil {
			return &domainErrors.SourceError{Source: "subscriptions", Err: err}
		}
		snapshot.subscriptions = subs
		return nil
	})

	g.Go(func() error {
		payments, err := c.paymentRepo.ListAll(gctx)
		if err != nil {
			return &domainErrors.SourceError{Source: "payments", Err: err}
		}
		snapshot.payments = payments
		return nil
	})

	if err := g.Wait(); err != nil {
		return sourceSnapshot{}, err
	}
	return snapshot, nil
}

func (c *RefreshStatisticsCommand) recordHistory(ctx context.Context, record *entity.RefreshRecord) {
	if c.historyRepo == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := c.historyRepo.Record(recordCtx, record); err != nil {
		c.logger.Warn("Failed to record statistics refresh", zap.Error(err))
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// ClearStatisticsCacheCommand empties the statistics cache
type ClearStatisticsCacheCommand struct {
	manager *service.StatisticsManager
	clock   service.Clock
}

// NewClearStatisticsCacheCommand creates a new clear cache command
func NewClearStatisticsCacheCommand(manager *service.StatisticsManager, clock service.Clock) *ClearStatisticsCacheCommand {
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &ClearStatisticsCacheCommand{manager: manager, clock: clock}
}

// Execute clears the cache; the next read triggers a full reload
func (c *ClearStatisticsCacheCommand) Execute(ctx context.Context) *dto.ClearCacheResponse {
	c.manager.ClearCache()
	metrics.SetCachedRecords(0, 0)

	return &dto.ClearCacheResponse{
		Message:   "Statistics cache cleared",
		Timestamp: c.clock.Now(),
	}
}

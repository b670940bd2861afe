package command_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/application/command"
	"github.com/bivex/fitness-stats/internal/domain/entity"
	domainErrors "github.com/bivex/fitness-stats/internal/domain/errors"
	"github.com/bivex/fitness-stats/internal/domain/service"
	"github.com/bivex/fitness-stats/tests/mocks"
	"github.com/bivex/fitness-stats/tests/testutil"
)

var now = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock   *testutil.ManualClock
	subs    *mocks.MockSubscriptionRepository
	pays    *mocks.MockPaymentRepository
	history *mocks.MockRefreshHistoryRepository
	manager *service.StatisticsManager
	cmd     *command.RefreshStatisticsCommand
}

func newFixture(t *testing.T, cfg command.RefreshConfig) *fixture {
	t.Helper()

	clock := testutil.NewManualClock(now)
	manager := service.NewStatisticsManager(service.NewStatisticsCache(5*time.Minute, clock), clock, zap.NewNop())
	f := &fixture{
		clock:   clock,
		subs:    mocks.NewMockSubscriptionRepository(),
		pays:    mocks.NewMockPaymentRepository(),
		history: mocks.NewMockRefreshHistoryRepository(),
		manager: manager,
	}
	f.cmd = command.NewRefreshStatisticsCommand(f.subs, f.pays, f.history, manager, clock, cfg, zap.NewNop())
	return f
}

func sampleData() ([]entity.Subscription, []entity.Payment) {
	subFactory := testutil.NewSubscriptionFactory()
	payFactory := testutil.NewPaymentFactory()

	subs := []entity.Subscription{
		subFactory.CreateActive(now.AddDate(0, -2, 0)),
		subFactory.CreateActive(now.AddDate(0, 0, -3)),
	}
	pays := []entity.Payment{
		payFactory.CreateSuccessful(subs[0].ID, "49.99", now.AddDate(0, 0, -1)),
	}
	return subs, pays
}

func TestRefreshStatisticsCommand_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("loads both sources into the cache", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()

		f.subs.On("ListAllWithDetails", mock.Anything).Return(subs, nil).Once()
		f.pays.On("ListAll", mock.Anything).Return(pays, nil).Once()
		f.history.On("Record", mock.Anything, mock.MatchedBy(func(r *entity.RefreshRecord) bool {
			return r.Success && r.Trigger == entity.TriggerManual && r.Subscriptions == 2 && r.Payments == 1
		})).Return(nil).Once()

		resp, err := f.cmd.Execute(ctx, entity.TriggerManual)

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Subscriptions)
		assert.Equal(t, 1, resp.Payments)
		assert.Equal(t, now, resp.Timestamp)
		assert.False(t, f.manager.IsCacheExpired())
		assert.Equal(t, 2, f.manager.GetCacheInfo().CachedSubscriptions)

		f.subs.AssertExpectations(t)
		f.pays.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("source failure keeps the previous generation", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()
		f.manager.UpdateCache(subs, pays)

		f.subs.On("ListAllWithDetails", mock.Anything).Return(nil, errors.New("connection refused"))
		f.pays.On("ListAll", mock.Anything).Return(pays, nil).Maybe()
		f.history.On("Record", mock.Anything, mock.MatchedBy(func(r *entity.RefreshRecord) bool {
			return !r.Success && r.Error != ""
		})).Return(nil).Once()

		resp, err := f.cmd.Execute(ctx, entity.TriggerScheduled)

		assert.Nil(t, resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrStatisticsRefreshFailed)

		var sourceErr *domainErrors.SourceError
		require.ErrorAs(t, err, &sourceErr)
		assert.Equal(t, "subscriptions", sourceErr.Source)

		assert.Equal(t, 2, f.manager.GetCacheInfo().CachedSubscriptions)
		f.history.AssertExpectations(t)
	})

	t.Run("history failure does not fail the refresh", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()

		f.subs.On("ListAllWithDetails", mock.Anything).Return(subs, nil)
		f.pays.On("ListAll", mock.Anything).Return(pays, nil)
		f.history.On("Record", mock.Anything, mock.Anything).Return(domainErrors.ErrRefreshHistoryUnavailable)

		resp, err := f.cmd.Execute(ctx, entity.TriggerManual)

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Subscriptions)
	})

	t.Run("works without a history store", func(t *testing.T) {
		clock := testutil.NewManualClock(now)
		manager := service.NewStatisticsManager(service.NewStatisticsCache(time.Minute, clock), clock, nil)
		subRepo := mocks.NewMockSubscriptionRepository()
		payRepo := mocks.NewMockPaymentRepository()
		subs, pays := sampleData()
		subRepo.On("ListAllWithDetails", mock.Anything).Return(subs, nil)
		payRepo.On("ListAll", mock.Anything).Return(pays, nil)

		cmd := command.NewRefreshStatisticsCommand(subRepo, payRepo, nil, manager, clock, command.RefreshConfig{}, nil)
		_, err := cmd.Execute(ctx, entity.TriggerWarmup)

		require.NoError(t, err)
		assert.False(t, manager.IsCacheExpired())
	})
}

func TestRefreshStatisticsCommand_RecordsTimedOutRefresh(t *testing.T) {
	f := newFixture(t, command.RefreshConfig{Timeout: 50 * time.Millisecond})

	f.subs.On("ListAllWithDetails", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	f.pays.On("ListAll", mock.Anything).Return([]entity.Payment{}, nil).Maybe()

	var recordCtxErr error
	recorded := false
	f.history.On("Record", mock.Anything, mock.MatchedBy(func(r *entity.RefreshRecord) bool {
		return !r.Success
	})).
		Run(func(args mock.Arguments) {
			recorded = true
			recordCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(nil).Once()

	_, err := f.cmd.Execute(context.Background(), entity.TriggerScheduled)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, recorded)
	assert.NoError(t, recordCtxErr, "history must be written on a live context")
	f.history.AssertExpectations(t)
}

func TestRefreshStatisticsCommand_Breaker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, command.RefreshConfig{
		Timeout:            time.Second,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Hour,
		BreakerInterval:    time.Hour,
	})

	f.subs.On("ListAllWithDetails", mock.Anything).Return(nil, errors.New("timeout"))
	f.pays.On("ListAll", mock.Anything).Return(nil, errors.New("timeout"))
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		_, err := f.cmd.Execute(ctx, entity.TriggerScheduled)
		assert.ErrorIs(t, err, domainErrors.ErrStatisticsRefreshFailed)
	}

	_, err := f.cmd.Execute(ctx, entity.TriggerScheduled)
	assert.ErrorIs(t, err, domainErrors.ErrStatisticsSourceUnavailable)
	assert.NotErrorIs(t, err, domainErrors.ErrStatisticsRefreshFailed)

	f.subs.AssertNumberOfCalls(t, "ListAllWithDetails", 2)
}

func TestRefreshStatisticsCommand_SharesInFlightRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, command.DefaultRefreshConfig())
	subs, pays := sampleData()

	release := make(chan struct{})
	f.subs.On("ListAllWithDetails", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(subs, nil)
	f.pays.On("ListAll", mock.Anything).Return(pays, nil)
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cmd.Execute(ctx, entity.TriggerOnDemand)
			errs <- err
		}()
	}

	// let every caller join the flight before the fetch completes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	f.subs.AssertNumberOfCalls(t, "ListAllWithDetails", 1)
	f.history.AssertNumberOfCalls(t, "Record", 1)
}

func TestRefreshStatisticsCommand_RefreshIfExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh cache is left alone", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()
		f.manager.UpdateCache(subs, pays)

		require.NoError(t, f.cmd.RefreshIfExpired(ctx))
		f.subs.AssertNotCalled(t, "ListAllWithDetails", mock.Anything)
	})

	t.Run("expired cache is reloaded", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()
		f.manager.UpdateCache(subs[:1], nil)
		f.clock.Advance(6 * time.Minute)

		f.subs.On("ListAllWithDetails", mock.Anything).Return(subs, nil).Once()
		f.pays.On("ListAll", mock.Anything).Return(pays, nil).Once()
		f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.cmd.RefreshIfExpired(ctx))
		assert.Equal(t, 2, f.manager.GetCacheInfo().CachedSubscriptions)
		assert.Equal(t, now.Add(6*time.Minute), f.manager.LastUpdate())
	})

	t.Run("cold cache surfaces the failure", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		f.subs.On("ListAllWithDetails", mock.Anything).Return(nil, errors.New("db down"))
		f.pays.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))
		f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

		err := f.cmd.RefreshIfExpired(ctx)
		assert.ErrorIs(t, err, domainErrors.ErrStatisticsRefreshFailed)
	})

	t.Run("warm cache serves stale data on failure", func(t *testing.T) {
		f := newFixture(t, command.DefaultRefreshConfig())
		subs, pays := sampleData()
		f.manager.UpdateCache(subs, pays)
		f.clock.Advance(10 * time.Minute)

		f.subs.On("ListAllWithDetails", mock.Anything).Return(nil, errors.New("db down"))
		f.pays.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))
		f.history.On("Record", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, f.cmd.RefreshIfExpired(ctx))
		assert.True(t, f.manager.IsCacheExpired())
		assert.Equal(t, 2, f.manager.GetCacheInfo().CachedSubscriptions)
	})
}

func TestClearStatisticsCacheCommand(t *testing.T) {
	clock := testutil.NewManualClock(now)
	manager := service.NewStatisticsManager(service.NewStatisticsCache(time.Minute, clock), clock, zap.NewNop())
	subs, pays := sampleData()
	manager.UpdateCache(subs, pays)

	resp := command.NewClearStatisticsCacheCommand(manager, clock).Execute(context.Background())

	assert.Equal(t, "Statistics cache cleared", resp.Message)
	assert.True(t, manager.IsCacheExpired())
	assert.True(t, manager.LastUpdate().IsZero())
	assert.Zero(t, manager.GetCacheInfo().CachedPayments)
}

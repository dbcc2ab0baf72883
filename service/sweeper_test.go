package service

import (
	"context"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweeper_Panics(t *testing.T) {
	store := &mock.EvictorMock{}
	clock := &mock.TimeProviderMock{NowFunc: helpers.TestNow}
	logger := log.NewNopLogger()

	t.Run("store_nil", func(t *testing.T) {
		assert.PanicsWithValue(t, "service.sweeper.go: store is required", func() {
			NewSweeper(nil, clock, time.Second, time.Second, logger)
		})
	})
	t.Run("clock_nil", func(t *testing.T) {
		assert.PanicsWithValue(t, "service.sweeper.go: clock is required", func() {
			NewSweeper(store, nil, time.Second, time.Second, logger)
		})
	})
	t.Run("logger_nil", func(t *testing.T) {
		assert.PanicsWithValue(t, "service.sweeper.go: logger is required", func() {
			NewSweeper(store, clock, time.Second, time.Second, nil)
		})
	})
}

func TestNewSweeper_Defaults(t *testing.T) {
	s := NewSweeper(&mock.EvictorMock{}, NewTimeProvider(helpers.TestNow), 0, 0, log.NewNopLogger())
	assert.Equal(t, DefaultHealthCheckInterval, s.interval)
	assert.Equal(t, DefaultMaxHeartbeatAge, s.maxAge)
	assert.Equal(t, SweeperIdle, s.State())
}

func TestSweeper_SweepOnce_WithMock(t *testing.T) {
	ctx := context.Background()
	now := helpers.TestNow()
	instances := []domain.Instance{
		{InstanceID: "fresh", LastHeartbeatAt: now.Add(-10 * time.Second)},
		{InstanceID: "boundary", LastHeartbeatAt: now.Add(-60 * time.Second)},
		{InstanceID: "stale", LastHeartbeatAt: now.Add(-61 * time.Second)},
		{InstanceID: "raced", LastHeartbeatAt: now.Add(-5 * time.Minute)},
		{InstanceID: "broken", LastHeartbeatAt: now.Add(-5 * time.Minute)},
	}
	var states []SweeperState
	var s *Sweeper
	store := &mock.EvictorMock{
		AllActiveFunc: func(ctx context.Context) []domain.Instance {
			states = append(states, s.State())
			return instances
		},
		EvictFunc: func(ctx context.Context, instanceID string) (domain.Instance, error) {
			states = append(states, s.State())
			switch instanceID {
			case "raced":
				return domain.Instance{}, NewEntityNotFoundError("instance not found", nil)
			case "broken":
				return domain.Instance{}, NewInternalServerError("registry index inconsistency", nil)
			}
			return domain.Instance{InstanceID: instanceID, Status: domain.StatusExpired}, nil
		},
	}
	clock := &mock.TimeProviderMock{NowFunc: func() time.Time { return now }}
	s = NewSweeper(store, clock, 30*time.Second, 60*time.Second, log.NewNopLogger())

	evicted := s.SweepOnce(ctx)
	assert.Len(t, clock.NowCalls(), 1, "one clock reading per sweep")

	require.Len(t, evicted, 1)
	assert.Equal(t, "stale", evicted[0].InstanceID)
	calls := store.EvictCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "stale", calls[0].InstanceID)
	assert.Equal(t, "raced", calls[1].InstanceID)
	assert.Equal(t, "broken", calls[2].InstanceID)
	assert.Equal(t, []SweeperState{SweeperScanning, SweeperEvicting, SweeperEvicting, SweeperEvicting}, states)
	assert.Equal(t, SweeperIdle, s.State())
}

func TestSweeper_SweepOnce_NothingStale(t *testing.T) {
	store := &mock.EvictorMock{
		AllActiveFunc: func(ctx context.Context) []domain.Instance {
			return []domain.Instance{{InstanceID: "a", LastHeartbeatAt: helpers.TestNow()}}
		},
	}
	clock := &mock.TimeProviderMock{NowFunc: helpers.TestNow}
	s := NewSweeper(store, clock, time.Second, time.Minute, log.NewNopLogger())
	assert.Empty(t, s.SweepOnce(context.Background()))
	assert.Empty(t, s.SweepOnce(context.Background()))
	assert.Empty(t, store.EvictCalls())
	assert.Len(t, clock.NowCalls(), 2)
}

func TestSweeper_SweepOnce_StopsOnCancelledContext(t *testing.T) {
	store := &mock.EvictorMock{
		AllActiveFunc: func(ctx context.Context) []domain.Instance {
			return []domain.Instance{{InstanceID: "a"}, {InstanceID: "b"}}
		},
	}
	s := NewSweeper(store, NewTimeProvider(helpers.TestNow), time.Second, time.Minute, log.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, s.SweepOnce(ctx))
	assert.Empty(t, store.EvictCalls())
}

func TestSweeper_ResolveBeforeAndAfterEviction(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, domain.DefaultPoolConfig())
	s := NewSweeper(store, NewTimeProvider(clock.Now), 30*time.Second, 60*time.Second, log.NewNopLogger())

	reg, err := store.Register(ctx, "svc-a", "127.0.0.1:11000", 0)
	require.NoError(t, err)
	require.Len(t, store.Resolve(ctx, "svc-a"), 1)

	clock.Advance(60 * time.Second)
	assert.Empty(t, s.SweepOnce(ctx), "age equal to max age is not evicted")
	require.Len(t, store.Resolve(ctx, "svc-a"), 1)

	clock.Advance(time.Second)
	evicted := s.SweepOnce(ctx)
	require.Len(t, evicted, 1)
	assert.Equal(t, reg.InstanceID, evicted[0].InstanceID)
	assert.Equal(t, domain.StatusExpired, evicted[0].Status)
	assert.Empty(t, store.Resolve(ctx, "svc-a"))

	_, err = store.Heartbeat(ctx, reg.InstanceID)
	assert.True(t, IsEntityNotFoundError(err), "evicted id must re-register")
}

func TestSweeper_HeartbeatExtendsWindow(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, domain.DefaultPoolConfig())
	s := NewSweeper(store, NewTimeProvider(clock.Now), 30*time.Second, 60*time.Second, log.NewNopLogger())

	reg, err := store.Register(ctx, "svc-a", "127.0.0.1:11000", 0)
	require.NoError(t, err)

	clock.Advance(50 * time.Second)
	_, err = store.Heartbeat(ctx, reg.InstanceID)
	require.NoError(t, err)

	clock.Advance(60 * time.Second)
	assert.Empty(t, s.SweepOnce(ctx), "a full window after the heartbeat is still alive")

	clock.Advance(time.Second)
	assert.Len(t, s.SweepOnce(ctx), 1)
}

// Eviction depends only on max heartbeat age; the lease returned at
// registration is informational.
func TestSweeper_LeaseIsInformationalOnly(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, domain.DefaultPoolConfig())
	s := NewSweeper(store, NewTimeProvider(clock.Now), 30*time.Second, 60*time.Second, log.NewNopLogger())

	short, err := store.Register(ctx, "short-lease", "127.0.0.1:11000", 1)
	require.NoError(t, err)
	long, err := store.Register(ctx, "long-lease", "127.0.0.1:11001", 86400)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		clock.Advance(20 * time.Second)
		_, err := store.Heartbeat(ctx, short.InstanceID)
		require.NoError(t, err)
		for _, inst := range s.SweepOnce(ctx) {
			require.NotEqual(t, short.InstanceID, inst.InstanceID, "a 1s lease must not cause eviction while heartbeating")
		}
	}
	assert.Len(t, store.Resolve(ctx, "short-lease"), 1)
	assert.Empty(t, store.Resolve(ctx, "long-lease"), "an 86400s lease does not protect a silent instance")
	_, err = store.Heartbeat(ctx, long.InstanceID)
	assert.True(t, IsEntityNotFoundError(err))
}

// svc-a heartbeats every 10s for 70s, then goes silent; it must survive the
// heartbeating phase and be gone one sweep interval after max age, with its
// slot reusable.
func TestSweeper_HeartbeatThenSilenceScenario(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, domain.DefaultPoolConfig())
	s := NewSweeper(store, NewTimeProvider(clock.Now), 30*time.Second, 60*time.Second, log.NewNopLogger())
	start := clock.Now()

	reg, err := store.Register(ctx, "svc-a", "127.0.0.1:11000", 86400)
	require.NoError(t, err)
	assert.Equal(t, 86400, reg.LeaseSeconds)

	nextSweep := start.Add(30 * time.Second)
	for tick := 1; tick <= 7; tick++ {
		now := clock.Advance(10 * time.Second)
		_, err := store.Heartbeat(ctx, reg.InstanceID)
		require.NoError(t, err)
		if !now.Before(nextSweep) {
			assert.Empty(t, s.SweepOnce(ctx))
			nextSweep = nextSweep.Add(30 * time.Second)
		}
		require.Len(t, store.Resolve(ctx, "svc-a"), 1)
	}

	silentSince := clock.Now()
	for clock.Now().Sub(silentSince) <= 60*time.Second+30*time.Second {
		now := clock.Advance(10 * time.Second)
		if !now.Before(nextSweep) {
			s.SweepOnce(ctx)
			nextSweep = nextSweep.Add(30 * time.Second)
		}
	}
	assert.Empty(t, store.Resolve(ctx, "svc-a"))

	again, err := store.Register(ctx, "svc-z", "127.0.0.1:11999", 0)
	require.NoError(t, err)
	assert.Equal(t, reg.VirtualAddress, again.VirtualAddress)
	assert.Equal(t, reg.VirtualPort, again.VirtualPort)
}

func TestSweeper_Run_StopsOnCancel(t *testing.T) {
	store, clock := newTestStore(t, domain.DefaultPoolConfig())
	s := NewSweeper(store, NewTimeProvider(clock.Now), 5*time.Millisecond, 60*time.Second, log.NewNopLogger())

	_, err := store.Register(context.Background(), "svc-a", "127.0.0.1:11000", 0)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(store.Resolve(context.Background(), "svc-a")) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

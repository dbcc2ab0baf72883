package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// DefaultHealthCheckInterval is the period between sweep cycles.
	DefaultHealthCheckInterval = 30 * time.Second
	// DefaultMaxHeartbeatAge is the heartbeat age past which an instance is evicted.
	DefaultMaxHeartbeatAge = 60 * time.Second
)

// SweeperState is the phase of the current sweep cycle.
type SweeperState int32

const (
	SweeperIdle SweeperState = iota
	SweeperScanning
	SweeperEvicting
)

func (s SweeperState) String() string {
	switch s {
	case SweeperScanning:
		return "scanning"
	case SweeperEvicting:
		return "evicting"
	default:
		return "idle"
	}
}

// Sweeper evicts instances whose last heartbeat is older than maxAge.
//
// Each cycle works on an AllActive snapshot and evicts stale instances one at
// a time through the store, so registration and heartbeat traffic is blocked
// for at most one removal. An instance found stale in the snapshot is evicted
// even if it heartbeats between the scan and its eviction.
type Sweeper struct {
	store    interfaces.Evictor
	clock    interfaces.TimeProvider
	interval time.Duration
	maxAge   time.Duration
	logger   log.Logger

	state atomic.Int32
}

// NewSweeper creates a sweeper. Non-positive interval or maxAge take the defaults.
// Panics on nil store, clock or logger.
func NewSweeper(store interfaces.Evictor, clock interfaces.TimeProvider, interval, maxAge time.Duration, logger log.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxHeartbeatAge
	}
	return &Sweeper{
		store:    helpers.NilPanic(store, "service.sweeper.go: store is required"),
		clock:    helpers.NilPanic(clock, "service.sweeper.go: clock is required"),
		interval: interval,
		maxAge:   maxAge,
		logger:   log.With(helpers.NilPanic(logger, "service.sweeper.go: logger is required"), "component", "sweeper"),
	}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	level.Info(s.logger).Log("msg", "sweeper started", "interval", s.interval, "max_heartbeat_age", s.maxAge)
	for {
		select {
		case <-ctx.Done():
			level.Info(s.logger).Log("msg", "sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one scan-and-evict cycle and returns the evicted instances.
// An instance already removed by a concurrent deregistration is skipped silently.
func (s *Sweeper) SweepOnce(ctx context.Context) []domain.Instance {
	s.state.Store(int32(SweeperScanning))
	defer s.state.Store(int32(SweeperIdle))

	snapshot := s.store.AllActive(ctx)
	now := s.clock.Now()
	var stale []domain.Instance
	for _, inst := range snapshot {
		if inst.IsStale(now, s.maxAge) {
			stale = append(stale, inst)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	s.state.Store(int32(SweeperEvicting))
	evicted := make([]domain.Instance, 0, len(stale))
	for _, inst := range stale {
		if ctx.Err() != nil {
			break
		}
		removed, err := s.store.Evict(ctx, inst.InstanceID)
		switch {
		case err == nil:
			evicted = append(evicted, removed)
		case IsEntityNotFoundError(err):
			level.Debug(s.logger).Log("msg", "instance already removed", "instance_id", inst.InstanceID)
		default:
			level.Error(s.logger).Log("msg", "eviction failed", "instance_id", inst.InstanceID, "err", err)
		}
	}
	level.Info(s.logger).Log("msg", "sweep finished", "scanned", len(snapshot), "stale", len(stale), "evicted", len(evicted))
	return evicted
}

// State returns the phase of the cycle in progress.
func (s *Sweeper) State() SweeperState {
	return SweeperState(s.state.Load())
}

// Package adapters connects the registry to the outside world: the Redis
// mirror and gRPC health publisher observe the store, and RegistryClient is
// the line protocol client used by services and scenarios.
package adapters

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// MirrorKeyPrefix is the Redis key prefix of mirrored instances.
	MirrorKeyPrefix = "instance"

	DefaultMirrorWriteTimeout = 2 * time.Second
)

// RedisMirror writes every live instance to a cache under its id with a TTL of
// max_heartbeat_age, refreshes it on each heartbeat and deletes it on removal.
// It is write-only: the registry never reads the mirror back.
type RedisMirror struct {
	cache   interfaces.Cache[domain.Instance]
	ttl     time.Duration
	timeout time.Duration
	logger  log.Logger
}

var _ interfaces.InstanceObserver = (*RedisMirror)(nil)

// NewRedisMirror creates the mirror. ttl is normally the registry's max heartbeat age.
func NewRedisMirror(cache interfaces.Cache[domain.Instance], ttl time.Duration, logger log.Logger) *RedisMirror {
	if ttl <= 0 {
		panic("adapters.redis_mirror.go: ttl must be positive")
	}
	return &RedisMirror{
		cache:   helpers.NilPanic(cache, "adapters.redis_mirror.go: cache is required"),
		ttl:     ttl,
		timeout: DefaultMirrorWriteTimeout,
		logger:  log.With(helpers.NilPanic(logger, "adapters.redis_mirror.go: logger is required"), "component", "RedisMirror"),
	}
}

// MarshalInstance and UnmarshalInstance are the JSON codec of mirrored records.
func MarshalInstance(i domain.Instance) ([]byte, error) { return json.Marshal(i) }

func UnmarshalInstance(b []byte) (domain.Instance, error) {
	var i domain.Instance
	err := json.Unmarshal(b, &i)
	return i, err
}

func (m *RedisMirror) InstanceRegistered(ctx context.Context, inst domain.Instance) {
	m.write(ctx, inst)
}

func (m *RedisMirror) InstanceRefreshed(ctx context.Context, inst domain.Instance) {
	m.write(ctx, inst)
}

func (m *RedisMirror) InstanceRemoved(ctx context.Context, inst domain.Instance) {
	ctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.cache.DeleteValue(ctx, inst.InstanceID); err != nil {
		level.Warn(m.logger).Log("msg", "mirror delete failed", "instance_id", inst.InstanceID, "err", err)
	}
}

func (m *RedisMirror) write(ctx context.Context, inst domain.Instance) {
	ctx, cancel := m.bound(ctx)
	defer cancel()
	if err := m.cache.WriteValue(ctx, inst.InstanceID, inst, m.ttl); err != nil {
		level.Warn(m.logger).Log("msg", "mirror write failed", "instance_id", inst.InstanceID, "err", err)
	}
}

// bound detaches ctx from the caller's cancellation and applies the write timeout.
func (m *RedisMirror) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
}

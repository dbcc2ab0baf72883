package adapters

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mirrorInstance = domain.Instance{
	Name:            "svc-a",
	InstanceID:      "inst-1",
	VirtualAddress:  netip.MustParseAddr("10.0.0.100"),
	VirtualPort:     9000,
	BackendAddress:  "127.0.0.1:8080",
	RegisteredAt:    helpers.TestNow(),
	LastHeartbeatAt: helpers.TestNow(),
	LeaseSeconds:    86400,
	Status:          domain.StatusActive,
}

func TestNewRedisMirror_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "adapters.redis_mirror.go: cache is required", func() {
		NewRedisMirror(nil, time.Minute, log.NewNopLogger())
	})
	assert.PanicsWithValue(t, "adapters.redis_mirror.go: logger is required", func() {
		NewRedisMirror(&mock.CacheMock[domain.Instance]{}, time.Minute, nil)
	})
	assert.PanicsWithValue(t, "adapters.redis_mirror.go: ttl must be positive", func() {
		NewRedisMirror(&mock.CacheMock[domain.Instance]{}, 0, log.NewNopLogger())
	})
}

func TestRedisMirror_WritesWithTTL(t *testing.T) {
	cache := &mock.CacheMock[domain.Instance]{
		WriteValueFunc: func(ctx context.Context, key string, item domain.Instance, ttl time.Duration) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		},
	}
	m := NewRedisMirror(cache, time.Minute, log.NewNopLogger())

	m.InstanceRegistered(context.Background(), mirrorInstance)
	refreshed := mirrorInstance
	refreshed.LastHeartbeatAt = mirrorInstance.LastHeartbeatAt.Add(10 * time.Second)
	m.InstanceRefreshed(context.Background(), refreshed)

	calls := cache.WriteValueCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "inst-1", calls[0].Key)
	assert.Equal(t, mirrorInstance, calls[0].Item)
	assert.Equal(t, time.Minute, calls[0].Ttl)
	assert.Equal(t, refreshed, calls[1].Item)
}

func TestRedisMirror_DeletesOnRemoval(t *testing.T) {
	cache := &mock.CacheMock[domain.Instance]{}
	m := NewRedisMirror(cache, time.Minute, log.NewNopLogger())

	evicted := mirrorInstance
	evicted.Status = domain.StatusExpired
	m.InstanceRemoved(context.Background(), evicted)

	require.Len(t, cache.DeleteValueCalls(), 1)
	assert.Equal(t, "inst-1", cache.DeleteValueCalls()[0].Key)
	assert.Empty(t, cache.WriteValueCalls())
}

func TestRedisMirror_IgnoresCallerCancellation(t *testing.T) {
	cache := &mock.CacheMock[domain.Instance]{
		WriteValueFunc: func(ctx context.Context, key string, item domain.Instance, ttl time.Duration) error {
			return ctx.Err()
		},
	}
	m := NewRedisMirror(cache, time.Minute, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.InstanceRegistered(ctx, mirrorInstance)
	require.Len(t, cache.WriteValueCalls(), 1)
}

func TestRedisMirror_CacheErrorsAreSwallowed(t *testing.T) {
	cache := &mock.CacheMock[domain.Instance]{
		WriteValueFunc: func(ctx context.Context, key string, item domain.Instance, ttl time.Duration) error {
			return assert.AnError
		},
		DeleteValueFunc: func(ctx context.Context, key string) error {
			return assert.AnError
		},
	}
	m := NewRedisMirror(cache, time.Minute, log.NewNopLogger())

	assert.NotPanics(t, func() {
		m.InstanceRegistered(context.Background(), mirrorInstance)
		m.InstanceRemoved(context.Background(), mirrorInstance)
	})
}

func TestInstanceCodec(t *testing.T) {
	b, err := MarshalInstance(mirrorInstance)
	require.NoError(t, err)
	got, err := UnmarshalInstance(b)
	require.NoError(t, err)
	assert.Equal(t, mirrorInstance.VirtualAddrPort(), got.VirtualAddrPort())
	assert.True(t, mirrorInstance.RegisteredAt.Equal(got.RegisteredAt))
	assert.Equal(t, mirrorInstance.Status, got.Status)

	_, err = UnmarshalInstance([]byte("{"))
	assert.Error(t, err)
}

package adapters

import (
	"context"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/handlers"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRegistry(t *testing.T, pool domain.PoolConfig) (*service.RegistryStore, string) {
	t.Helper()
	return startRegistryWith(t, pool, handlers.RegistrationConfig{})
}

func startRegistryWith(t *testing.T, pool domain.PoolConfig, cfg handlers.RegistrationConfig) (*service.RegistryStore, string) {
	t.Helper()
	alloc, err := service.NewAllocator(pool)
	require.NoError(t, err)
	clock := helpers.NewManualClock(helpers.TestNow())
	store := service.NewRegistryStore(alloc, service.NewTimeProvider(clock.Now), service.DefaultRegistryConfig(), log.NewNopLogger())

	srv := handlers.NewRegistrationServer(store, cfg, log.NewNopLogger())
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), lis) }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})
	return store, lis.Addr().String()
}

func newTestClient(t *testing.T, addr string, cfg RegistryClientConfig) *RegistryClient {
	t.Helper()
	c := NewRegistryClient(addr, cfg, log.NewNopLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewRegistryClient_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "adapters.registry_client.go: addr is required", func() {
		NewRegistryClient("", RegistryClientConfig{}, log.NewNopLogger())
	})
	assert.PanicsWithValue(t, "adapters.registry_client.go: logger is required", func() {
		NewRegistryClient("127.0.0.1:1", RegistryClientConfig{}, nil)
	})
}

func TestRegistryClient_Lifecycle(t *testing.T) {
	ctx := context.Background()
	_, addr := startRegistry(t, domain.DefaultPoolConfig())
	c := newTestClient(t, addr, RegistryClientConfig{})

	reg, err := c.Register(ctx, "svc-a", "127.0.0.1:8080", 0)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.100"), reg.VirtualAddress)
	assert.Equal(t, uint16(9000), reg.VirtualPort)
	assert.Equal(t, 86400, reg.LeaseSeconds)
	assert.Equal(t, 10*time.Second, reg.HeartbeatInterval)
	assert.NotEmpty(t, reg.InstanceID)

	require.NoError(t, c.Heartbeat(ctx, reg.InstanceID))

	addrs, err := c.Resolve(ctx, "svc-a")
	require.NoError(t, err)
	assert.Equal(t, []netip.AddrPort{netip.MustParseAddrPort("10.0.0.100:9000")}, addrs)

	require.NoError(t, c.Deregister(ctx, reg.InstanceID))
	require.NoError(t, c.Deregister(ctx, reg.InstanceID), "second deregister is acknowledged")
	assert.ErrorIs(t, c.Heartbeat(ctx, reg.InstanceID), ErrInstanceNotFound)

	addrs, err = c.Resolve(ctx, "svc-a")
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestRegistryClient_Failures(t *testing.T) {
	ctx := context.Background()
	_, addr := startRegistry(t, domain.PoolConfig{IPStart: netip.MustParseAddr("10.0.0.100"), IPCount: 1, PortStart: 9000, PortEnd: 9000})
	c := newTestClient(t, addr, RegistryClientConfig{})

	_, err := c.Register(ctx, "svc-a", "127.0.0.1:1", 0)
	require.NoError(t, err)

	_, err = c.Register(ctx, "svc-b", "127.0.0.1:2", 0)
	require.Error(t, err)
	assert.True(t, service.IsAllocationExhaustedError(err))

	_, err = c.Register(ctx, "bad name", "127.0.0.1:2", 0)
	require.Error(t, err)
	assert.True(t, service.IsBadParameterError(err))

	// the server dropped the connection after the malformed request; the client redials
	addrs, err := c.Resolve(ctx, "svc-a")
	require.NoError(t, err)
	assert.Len(t, addrs, 1)
}

func TestRegistryClient_DialError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	c := newTestClient(t, addr, RegistryClientConfig{Timeout: time.Second})
	_, err = c.Register(context.Background(), "svc-a", "127.0.0.1:1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial registry")
}

func TestRegistryClient_Run(t *testing.T) {
	store, addr := startRegistry(t, domain.DefaultPoolConfig())
	c := newTestClient(t, addr, RegistryClientConfig{HeartbeatInterval: 20 * time.Millisecond, RetryDelay: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	regs := make(chan domain.Registration, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, "svc-a", "127.0.0.1:8080", 0, func(r domain.Registration) { regs <- r })
	}()

	var first domain.Registration
	select {
	case first = <-regs:
	case <-time.After(3 * time.Second):
		t.Fatal("no registration")
	}
	require.Len(t, store.Resolve(context.Background(), "svc-a"), 1)

	// the registry forgets the instance; the next heartbeat sees NOT_FOUND
	_, err := store.Evict(context.Background(), first.InstanceID)
	require.NoError(t, err)

	var second domain.Registration
	select {
	case second = <-regs:
	case <-time.After(3 * time.Second):
		t.Fatal("no re-registration")
	}
	assert.NotEqual(t, first.InstanceID, second.InstanceID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, store.AllActive(context.Background()), "deregistered on exit")
}

func TestRegistryClient_RedialsAfterIdleClose(t *testing.T) {
	ctx := context.Background()
	store, addr := startRegistryWith(t, domain.DefaultPoolConfig(), handlers.RegistrationConfig{IdleTimeout: 100 * time.Millisecond})
	c := newTestClient(t, addr, RegistryClientConfig{Timeout: time.Second})

	reg, err := c.Register(ctx, "svc-a", "127.0.0.1:8080", 0)
	require.NoError(t, err)

	// every gap outlasts the server's idle timeout, so each request finds the connection closed
	for i := 0; i < 4; i++ {
		time.Sleep(250 * time.Millisecond)
		require.NoError(t, c.Heartbeat(ctx, reg.InstanceID), "heartbeat %d", i)
	}

	time.Sleep(250 * time.Millisecond)
	require.NoError(t, c.Deregister(ctx, reg.InstanceID))
	assert.Empty(t, store.AllActive(ctx))
}

func TestRegistryClient_RunDeregistersAfterIdleClose(t *testing.T) {
	store, addr := startRegistryWith(t, domain.DefaultPoolConfig(), handlers.RegistrationConfig{IdleTimeout: 100 * time.Millisecond})
	c := newTestClient(t, addr, RegistryClientConfig{HeartbeatInterval: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	regs := make(chan domain.Registration, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, "svc-a", "127.0.0.1:8080", 0, func(r domain.Registration) { regs <- r })
	}()

	select {
	case <-regs:
	case <-time.After(3 * time.Second):
		t.Fatal("no registration")
	}
	require.Len(t, store.AllActive(context.Background()), 1)

	time.Sleep(500 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, store.AllActive(context.Background()), "deregistered on exit")
}

func TestRegistryClient_FreshConnectionClosedIsNotRetried(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			_ = conn.Close()
		}
	}()

	c := newTestClient(t, lis.Addr().String(), RegistryClientConfig{Timeout: time.Second})
	_, err = c.Register(context.Background(), "svc-a", "127.0.0.1:1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGISTER")
	assert.Equal(t, int32(1), accepted.Load())
}

func TestFailedError(t *testing.T) {
	tests := []struct {
		name  string
		resp  domain.Response
		check func(error) bool
	}{
		{name: "exhausted", resp: domain.FailedResponse(domain.ReasonAllocationExhausted, "full"), check: service.IsAllocationExhaustedError},
		{name: "malformed", resp: domain.FailedResponse(domain.ReasonMalformedRequest, "bad"), check: service.IsBadParameterError},
		{name: "rate limited", resp: domain.FailedResponse(domain.ReasonRateLimited, "slow down"), check: func(err error) bool {
			return service.IsMyError(err, service.ErrRateLimited)
		}},
		{name: "internal", resp: domain.FailedResponse(domain.ReasonInternalError, "internal error"), check: service.IsInternalServerError},
		{name: "no fields", resp: domain.Response{Status: domain.StatusFailed}, check: service.IsInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(failedError(tt.resp)))
		})
	}
}

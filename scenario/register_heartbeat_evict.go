package scenario

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/jrtxreal/netsel/adapters"
)

const scenarioRegisterHeartbeatEvict = "register_heartbeat_evict"

func init() {
	Register(scenarioRegisterHeartbeatEvict, runRegisterHeartbeatEvict)
}

// runRegisterHeartbeatEvict registers one instance, keeps it alive with heartbeats
// for longer than the eviction threshold, then stops heartbeating and expects the
// sweeper to evict it no earlier than MaxHeartbeatAge after the last heartbeat and
// no later than one further sweep. A heartbeat for the evicted id must get NOT_FOUND.
func runRegisterHeartbeatEvict(ctx context.Context, cfg *Config) error {
	client, dispose := CreateRegistryClient(cfg)
	defer dispose()

	name := uniqueName("svc-a")
	reg, err := client.Register(ctx, name, backendRegistrationAddr(cfg, 8080), 0)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	if !reg.VirtualAddress.IsValid() || reg.VirtualPort == 0 {
		return fmt.Errorf("register: invalid virtual address %s:%d", reg.VirtualAddress, reg.VirtualPort)
	}
	if reg.LeaseSeconds <= 0 {
		return fmt.Errorf("register: lease_seconds=%d, want positive default", reg.LeaseSeconds)
	}
	virtual := netip.AddrPortFrom(reg.VirtualAddress, reg.VirtualPort)

	found, err := resolveContains(ctx, client, name, virtual)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("resolve %s: %s missing right after registration", name, virtual)
	}

	// heartbeat past one full eviction window
	keepAlive := cfg.MaxHeartbeatAge + cfg.HealthCheckInterval + cfg.MaxHeartbeatAge/2
	var lastBeat time.Time
	for start := time.Now(); time.Since(start) < keepAlive; {
		if err := sleepCtx(ctx, cfg.HeartbeatInterval); err != nil {
			return err
		}
		lastBeat = time.Now()
		if err := client.Heartbeat(ctx, reg.InstanceID); err != nil {
			return fmt.Errorf("heartbeat after %s: %w", time.Since(start).Round(time.Millisecond), err)
		}
	}
	found, err = resolveContains(ctx, client, name, virtual)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("resolve %s: heartbeating instance was evicted", name)
	}

	// stop heartbeating and wait for the sweeper
	gone := func() (bool, error) {
		ok, err := resolveContains(ctx, client, name, virtual)
		return !ok, err
	}
	limit := cfg.MaxHeartbeatAge + 2*cfg.HealthCheckInterval + time.Second
	if err := waitFor(ctx, limit, pollInterval(cfg), gone); err != nil {
		return fmt.Errorf("wait for eviction of %s: %w", reg.InstanceID, err)
	}
	if age := time.Since(lastBeat); age < cfg.MaxHeartbeatAge {
		return fmt.Errorf("instance evicted %s after last heartbeat, before max heartbeat age %s", age, cfg.MaxHeartbeatAge)
	}

	err = client.Heartbeat(ctx, reg.InstanceID)
	if !errors.Is(err, adapters.ErrInstanceNotFound) {
		return fmt.Errorf("heartbeat after eviction: got %v, want %v", err, adapters.ErrInstanceNotFound)
	}
	if err := client.Deregister(ctx, reg.InstanceID); err != nil {
		return fmt.Errorf("deregister after eviction must be acknowledged: %w", err)
	}
	return nil
}

// backendRegistrationAddr is a backend address for scenarios that never proxy to it.
func backendRegistrationAddr(cfg *Config, port int) string {
	host := cfg.BackendHost
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

package service

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

const (
	// DefaultLeaseSeconds is returned to clients that do not request a lease.
	DefaultLeaseSeconds = 86400
	// DefaultHeartbeatInterval is the heartbeat period advertised to clients.
	DefaultHeartbeatInterval = 10 * time.Second
)

// RegistryConfig holds the values the store hands back to registering clients.
type RegistryConfig struct {
	DefaultLeaseSeconds int
	HeartbeatInterval   time.Duration
}

// DefaultRegistryConfig returns a one-day lease and a 10s heartbeat interval.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		DefaultLeaseSeconds: DefaultLeaseSeconds,
		HeartbeatInterval:   DefaultHeartbeatInterval,
	}
}

// RegistryStore is the authoritative table of instance records.
//
// One RWMutex guards the three indexes and the allocator, so a record and its
// slot are inserted and removed in the same critical section and no reader can
// observe one index ahead of another. Critical sections never do I/O; observers
// are called after the lock is released. Reads return copies.
//
// RegistryStore implements interfaces.Registry, interfaces.Resolver and interfaces.Evictor.
type RegistryStore struct {
	allocator interfaces.Allocator
	clock     interfaces.TimeProvider
	cfg       RegistryConfig
	observers []interfaces.InstanceObserver
	logger    log.Logger

	mu     sync.RWMutex
	byID   map[string]*domain.Instance
	byName map[string][]string // instance ids, registration order
	bySlot map[domain.Slot]string
}

// NewRegistryStore creates an empty store. Panics on nil allocator, clock or logger.
// Zero fields of cfg take the defaults.
func NewRegistryStore(
	allocator interfaces.Allocator,
	clock interfaces.TimeProvider,
	cfg RegistryConfig,
	logger log.Logger,
	observers ...interfaces.InstanceObserver,
) *RegistryStore {
	if cfg.DefaultLeaseSeconds <= 0 {
		cfg.DefaultLeaseSeconds = DefaultLeaseSeconds
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	for _, o := range observers {
		helpers.NilPanic(o, "service.registry_store.go: observer must not be nil")
	}
	return &RegistryStore{
		allocator: helpers.NilPanic(allocator, "service.registry_store.go: allocator is required"),
		clock:     helpers.NilPanic(clock, "service.registry_store.go: clock is required"),
		cfg:       cfg,
		observers: observers,
		logger:    log.With(helpers.NilPanic(logger, "service.registry_store.go: logger is required"), "component", "registry_store"),
		byID:      make(map[string]*domain.Instance),
		byName:    make(map[string][]string),
		bySlot:    make(map[domain.Slot]string),
	}
}

// Register validates the request, allocates the lowest free slot and indexes a new Active record.
//
// Returns bad_parameter for an invalid name, backend or negative lease, and
// allocation_exhausted when the pool is full; in both cases nothing is stored.
func (r *RegistryStore) Register(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error) {
	if err := domain.ValidateServiceName(name); err != nil {
		return domain.Registration{}, NewBadParameterError("invalid service name", err)
	}
	if err := validateBackendAddress(backend); err != nil {
		return domain.Registration{}, NewBadParameterError("invalid backend address", err)
	}
	if leaseSeconds < 0 {
		return domain.Registration{}, NewBadParameterError("lease_seconds must not be negative", nil)
	}
	if leaseSeconds == 0 {
		leaseSeconds = r.cfg.DefaultLeaseSeconds
	}
	id := uuid.NewString()
	now := r.clock.Now()

	r.mu.Lock()
	slot, err := r.allocator.Allocate()
	if err != nil {
		inUse := r.allocator.InUse()
		r.mu.Unlock()
		level.Warn(r.logger).Log("msg", "registration rejected", "name", name, "in_use", inUse, "err", err)
		return domain.Registration{}, err
	}
	if holder, taken := r.bySlot[slot]; taken {
		r.mu.Unlock()
		err := NewInternalServerError("registry index inconsistency",
			fmt.Errorf("allocator returned slot %s still indexed for instance %s", slot, holder))
		level.Error(r.logger).Log("msg", "index invariant violated", "err", err)
		return domain.Registration{}, err
	}
	rec := &domain.Instance{
		Name:            name,
		InstanceID:      id,
		VirtualAddress:  slot.Address,
		VirtualPort:     slot.Port,
		BackendAddress:  backend,
		RegisteredAt:    now,
		LastHeartbeatAt: now,
		LeaseSeconds:    leaseSeconds,
		Status:          domain.StatusActive,
	}
	r.byID[id] = rec
	r.byName[name] = append(r.byName[name], id)
	r.bySlot[slot] = id
	snapshot := *rec
	r.mu.Unlock()

	level.Info(r.logger).Log("msg", "instance registered", "name", name, "instance_id", id, "virtual", slot, "backend", backend)
	for _, o := range r.observers {
		o.InstanceRegistered(ctx, snapshot)
	}
	return domain.Registration{
		InstanceID:        id,
		VirtualAddress:    slot.Address,
		VirtualPort:       slot.Port,
		LeaseSeconds:      leaseSeconds,
		HeartbeatInterval: r.cfg.HeartbeatInterval,
	}, nil
}

// Heartbeat sets LastHeartbeatAt to now. A clock reading older than the stored
// value leaves it unchanged, so the timestamp never moves backwards.
func (r *RegistryStore) Heartbeat(ctx context.Context, instanceID string) (domain.Instance, error) {
	now := r.clock.Now()

	r.mu.Lock()
	rec, ok := r.byID[instanceID]
	if !ok {
		r.mu.Unlock()
		return domain.Instance{}, NewEntityNotFoundError("instance not found", fmt.Errorf("instance id %q", instanceID))
	}
	if now.After(rec.LastHeartbeatAt) {
		rec.LastHeartbeatAt = now
	}
	snapshot := *rec
	r.mu.Unlock()

	level.Debug(r.logger).Log("msg", "heartbeat", "name", snapshot.Name, "instance_id", instanceID)
	for _, o := range r.observers {
		o.InstanceRefreshed(ctx, snapshot)
	}
	return snapshot, nil
}

// Deregister removes the instance and releases its slot immediately.
// Calling it again for the same id returns entity_not_found.
func (r *RegistryStore) Deregister(ctx context.Context, instanceID string) (domain.Instance, error) {
	inst, err := r.remove(ctx, instanceID, domain.StatusActive)
	if err == nil {
		level.Info(r.logger).Log("msg", "instance deregistered", "name", inst.Name, "instance_id", instanceID, "virtual", inst.Slot())
	}
	return inst, err
}

// Evict is the sweeper's removal path. The returned snapshot has Status expired.
func (r *RegistryStore) Evict(ctx context.Context, instanceID string) (domain.Instance, error) {
	inst, err := r.remove(ctx, instanceID, domain.StatusExpired)
	if err == nil {
		level.Info(r.logger).Log("msg", "instance evicted", "name", inst.Name, "instance_id", instanceID,
			"virtual", inst.Slot(), "last_heartbeat_at", inst.LastHeartbeatAt)
	}
	return inst, err
}

func (r *RegistryStore) remove(ctx context.Context, instanceID string, status domain.Status) (domain.Instance, error) {
	r.mu.Lock()
	rec, ok := r.byID[instanceID]
	if !ok {
		r.mu.Unlock()
		return domain.Instance{}, NewEntityNotFoundError("instance not found", fmt.Errorf("instance id %q", instanceID))
	}
	pos, err := r.checkIndexesLocked(rec)
	if err != nil {
		r.mu.Unlock()
		level.Error(r.logger).Log("msg", "index invariant violated", "instance_id", instanceID, "err", err)
		return domain.Instance{}, err
	}
	slot := rec.Slot()
	ids := r.byName[rec.Name]
	if len(ids) == 1 {
		delete(r.byName, rec.Name)
	} else {
		r.byName[rec.Name] = append(ids[:pos:pos], ids[pos+1:]...)
	}
	delete(r.bySlot, slot)
	delete(r.byID, instanceID)
	r.allocator.Release(slot)
	snapshot := *rec
	r.mu.Unlock()

	snapshot.Status = status
	for _, o := range r.observers {
		o.InstanceRemoved(ctx, snapshot)
	}
	return snapshot, nil
}

// checkIndexesLocked verifies rec is reachable through the name and slot indexes
// and that its slot is held in the allocator. It returns rec's position in the
// name index. Caller must hold r.mu.
func (r *RegistryStore) checkIndexesLocked(rec *domain.Instance) (int, error) {
	slot := rec.Slot()
	if holder := r.bySlot[slot]; holder != rec.InstanceID {
		return 0, NewInternalServerError("registry index inconsistency",
			fmt.Errorf("slot %s maps to %q, want %q", slot, holder, rec.InstanceID))
	}
	if !r.allocator.IsAllocated(slot) {
		return 0, NewInternalServerError("registry index inconsistency",
			fmt.Errorf("slot %s of instance %q is free in the allocator", slot, rec.InstanceID))
	}
	for i, id := range r.byName[rec.Name] {
		if id == rec.InstanceID {
			return i, nil
		}
	}
	return 0, NewInternalServerError("registry index inconsistency",
		fmt.Errorf("instance %q missing from name index %q", rec.InstanceID, rec.Name))
}

// Resolve returns copies of the active instances of name, oldest registration first.
func (r *RegistryStore) Resolve(_ context.Context, name string) []domain.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byName[name]
	out := make([]domain.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}

// ResolveAddresses is the DNS view of Resolve.
func (r *RegistryStore) ResolveAddresses(ctx context.Context, name string) []netip.AddrPort {
	instances := r.Resolve(ctx, name)
	out := make([]netip.AddrPort, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.VirtualAddrPort())
	}
	return out
}

// LookupAddress returns the instance holding the virtual slot.
func (r *RegistryStore) LookupAddress(_ context.Context, addr netip.AddrPort) (domain.Instance, error) {
	slot := domain.Slot{Address: addr.Addr().Unmap(), Port: addr.Port()}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySlot[slot]
	if !ok {
		return domain.Instance{}, NewEntityNotFoundError("no instance holds the address", fmt.Errorf("address %s", addr))
	}
	return *r.byID[id], nil
}

// Lookup returns the instance with the given id.
func (r *RegistryStore) Lookup(_ context.Context, instanceID string) (domain.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[instanceID]
	if !ok {
		return domain.Instance{}, NewEntityNotFoundError("instance not found", fmt.Errorf("instance id %q", instanceID))
	}
	return *rec, nil
}

// AllActive returns a snapshot of every record ordered by registration time, then id.
func (r *RegistryStore) AllActive(_ context.Context) []domain.Instance {
	r.mu.RLock()
	out := make([]domain.Instance, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, *rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].InstanceID < out[j].InstanceID
	})
	return out
}

func (r *RegistryStore) Stats(_ context.Context) domain.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.RegistryStats{
		Instances: len(r.byID),
		Services:  len(r.byName),
		PoolSize:  r.allocator.Size(),
		PoolInUse: r.allocator.InUse(),
	}
}

// HeartbeatInterval is the interval advertised to clients at registration.
func (r *RegistryStore) HeartbeatInterval() time.Duration {
	return r.cfg.HeartbeatInterval
}

func validateBackendAddress(backend string) error {
	host, port, err := net.SplitHostPort(backend)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("backend %q has no host", backend)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("backend %q has invalid port", backend)
	}
	return nil
}

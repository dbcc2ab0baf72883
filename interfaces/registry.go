package interfaces

import (
	"context"
	"net/netip"

	"github.com/jrtxreal/netsel/domain"
)

// Registry is the write and read surface of the registry store used by the
// registration line protocol and the admin API.
//
//go:generate moq -stub -out mock/registry.go -pkg mock . Registry
type Registry interface {
	// Register allocates a virtual slot for a new instance of name.
	// Returns:
	// 1) (registration, nil) on success; leaseSeconds 0 is replaced by the configured default;
	// 2) bad_parameter when name, backend or lease are invalid;
	// 3) allocation_exhausted when the pool has no free slot.
	Register(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error)

	// Heartbeat refreshes the instance and returns its updated snapshot,
	// or entity_not_found when the id is unknown or already evicted.
	Heartbeat(ctx context.Context, instanceID string) (domain.Instance, error)

	// Deregister removes the instance and releases its slot.
	// A second call for the same id returns entity_not_found.
	Deregister(ctx context.Context, instanceID string) (domain.Instance, error)

	// Resolve returns copies of the active instances of name, oldest registration first.
	Resolve(ctx context.Context, name string) []domain.Instance

	// AllActive returns a point-in-time copy of every active instance.
	AllActive(ctx context.Context) []domain.Instance

	// Stats summarizes the store.
	Stats(ctx context.Context) domain.RegistryStats
}

// Resolver is the read-only view consumed by the proxies and by DNS.
//
//go:generate moq -stub -out mock/resolver.go -pkg mock . Resolver
type Resolver interface {
	// Resolve returns copies of the active instances of name, oldest registration first; empty when none.
	Resolve(ctx context.Context, name string) []domain.Instance

	// ResolveAddresses returns the virtual address and port of each active instance of name, in Resolve order.
	ResolveAddresses(ctx context.Context, name string) []netip.AddrPort

	// LookupAddress returns the instance holding the virtual address and port,
	// or entity_not_found when the slot is free.
	LookupAddress(ctx context.Context, addr netip.AddrPort) (domain.Instance, error)
}

// InstanceLister provides snapshots of the live instance set.
type InstanceLister interface {
	AllActive(ctx context.Context) []domain.Instance
}

// Evictor is the part of the store the health sweeper needs: a snapshot to
// scan and a removal path that also releases the slot.
//
//go:generate moq -stub -out mock/evictor.go -pkg mock . Evictor
type Evictor interface {
	InstanceLister

	// Evict removes the instance as expired. Returns entity_not_found when
	// it was already removed by a concurrent deregistration.
	Evict(ctx context.Context, instanceID string) (domain.Instance, error)
}

package interfaces

import (
	"net/netip"

	"github.com/jrtxreal/netsel/domain"
)

// Allocator hands out and reclaims virtual slots. Implementations are not
// safe for concurrent use; the registry store calls them inside its own
// critical section so slot state and record state change together.
type Allocator interface {
	// Allocate returns the lowest free slot, or allocation_exhausted when none is left.
	Allocate() (domain.Slot, error)
	// Release frees the slot and reports whether it was held. Releasing a free
	// or out-of-pool slot is a no-op.
	Release(slot domain.Slot) bool
	IsAllocated(slot domain.Slot) bool
	// Contains reports whether addr is one of the pool's virtual IPs.
	Contains(addr netip.Addr) bool
	Size() int
	InUse() int
}

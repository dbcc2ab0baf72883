package service

import (
	"sync"
	"sync/atomic"

	"github.com/jrtxreal/netsel/domain"
)

// Selector picks backends round-robin with one cursor per service name.
// The cursor only advances; with no churn, N picks over N instances visit each
// exactly once. Under concurrent churn the spread is approximate.
type Selector struct {
	cursors sync.Map // name -> *atomic.Uint64
}

// NewSelector creates a Selector with no cursors.
func NewSelector() *Selector {
	return &Selector{}
}

// Next returns instances[cursor % len(instances)] and advances the cursor for name.
// ok is false when instances is empty.
func (s *Selector) Next(name string, instances []domain.Instance) (domain.Instance, bool) {
	if len(instances) == 0 {
		return domain.Instance{}, false
	}
	c, _ := s.cursors.LoadOrStore(name, new(atomic.Uint64))
	n := c.(*atomic.Uint64).Add(1) - 1
	return instances[n%uint64(len(instances))], true
}

// NextExcluding is Next over instances without the one whose id is excluded.
// The proxies use it for their single reselection after a backend failure.
func (s *Selector) NextExcluding(name string, instances []domain.Instance, excludedID string) (domain.Instance, bool) {
	remaining := make([]domain.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.InstanceID != excludedID {
			remaining = append(remaining, inst)
		}
	}
	return s.Next(name, remaining)
}

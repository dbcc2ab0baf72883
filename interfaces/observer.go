package interfaces

import (
	"context"

	"github.com/jrtxreal/netsel/domain"
)

// InstanceObserver is notified of registry changes. The store calls observers
// after releasing its lock, in the goroutine that made the change, so an
// observer may do I/O but should bound it with a timeout.
//
//go:generate moq -stub -out mock/instance_observer.go -pkg mock . InstanceObserver
type InstanceObserver interface {
	InstanceRegistered(ctx context.Context, inst domain.Instance)
	InstanceRefreshed(ctx context.Context, inst domain.Instance)
	// InstanceRemoved receives the final snapshot; Status is expired when the sweeper evicted it.
	InstanceRemoved(ctx context.Context, inst domain.Instance)
}

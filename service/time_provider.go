package service

import (
	"time"

	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"
)

// timeProvider implements interfaces.TimeProvider with an injected now func.
type timeProvider struct {
	now func() time.Time
}

// NewTimeProvider creates a TimeProvider backed by now. Panics on nil now.
// cmd/netsel passes time.Now().UTC; tests pass a helpers.ManualClock.
func NewTimeProvider(now func() time.Time) interfaces.TimeProvider {
	return &timeProvider{now: helpers.NilPanic(now, "service.time_provider.go: now is required")}
}

func (t *timeProvider) Now() time.Time {
	return t.now()
}

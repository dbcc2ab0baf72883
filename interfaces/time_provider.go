package interfaces

import "time"

// TimeProvider supplies "now" to the registry and the sweeper so heartbeat
// ages can be tested with a simulated clock.
//
//go:generate moq -stub -out mock/time_provider.go -pkg mock . TimeProvider
type TimeProvider interface {
	Now() time.Time
}

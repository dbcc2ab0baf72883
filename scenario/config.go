package scenario

import "time"

// Config holds the addresses of the deployment under test and the timing it runs with.
type Config struct {
	// RegistryAddr is the registration line protocol listener (host:port).
	RegistryAddr string
	// AdminURL is the admin API base URL, e.g. http://localhost:8082.
	AdminURL string
	// TCPProxyAddr is a TCP proxy listener in name-hint mode.
	TCPProxyAddr string
	// HTTPProxyAddr is the HTTP proxy listener (host:port).
	HTTPProxyAddr string
	// BackendHost is the local address scenario backends listen on; the proxies must reach it.
	BackendHost string

	// MaxHeartbeatAge and HealthCheckInterval must match the deployment's sweeper settings.
	MaxHeartbeatAge     time.Duration
	HealthCheckInterval time.Duration
	// HeartbeatInterval is how often scenarios heartbeat; keep it well below MaxHeartbeatAge.
	HeartbeatInterval time.Duration
}

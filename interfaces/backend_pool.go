package interfaces

import "net/http"

// BackendPool keeps persistent HTTP connections per backend address for the HTTP proxy.
//
// Transport returns the round tripper for a backend, creating it on first use.
// Reset drops every connection held for the backend so the next Transport call
// dials fresh; the proxy calls it when a request fails on a reused connection.
// Close releases all connections and makes Transport return ErrPoolClosed; idempotent.
//
//go:generate moq -stub -out mock/backend_pool.go -pkg mock . BackendPool
type BackendPool interface {
	Transport(backend string) (http.RoundTripper, error)
	Reset(backend string)
	Close() error
}

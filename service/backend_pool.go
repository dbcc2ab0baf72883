package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ErrPoolClosed is returned by Transport after the pool has been closed.
var ErrPoolClosed = errors.New("backend pool is closed")

const DefaultPoolRefreshInterval = 5 * time.Second

// TransportFactory builds the round tripper for one backend address.
type TransportFactory func(backend string) *http.Transport

// NewTransportFactory returns a factory of keep-alive transports that dial with
// dialTimeout and wait at most responseTimeout for response headers.
func NewTransportFactory(dialTimeout, responseTimeout time.Duration) TransportFactory {
	return func(string) *http.Transport {
		dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
		return &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          64,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: responseTimeout,
			ExpectContinueTimeout: time.Second,
		}
	}
}

// backendPool implements interfaces.BackendPool. It keeps one *http.Transport
// per backend address; a background loop compares the cached backends with
// the live instance set and drops transports of backends that disappeared.
// Fields under mu: transports (backend address → transport), closed.
type backendPool struct {
	lister          interfaces.InstanceLister
	factory         TransportFactory
	refreshInterval time.Duration
	logger          log.Logger

	mu         sync.Mutex
	transports map[string]*http.Transport
	closed     bool
	stop       chan struct{}
	done       chan struct{}
}

// NewBackendPool creates the pool and starts its refresh loop. Panics on nil lister, factory or logger.
//
// Parameters: lister is the source of the live instance set (the registry store); factory builds one transport per backend;
// refreshInterval is the prune period, non-positive means DefaultPoolRefreshInterval.
//
// Called from cmd/netsel for the HTTP proxy.
func NewBackendPool(
	lister interfaces.InstanceLister,
	factory TransportFactory,
	refreshInterval time.Duration,
	logger log.Logger,
) interfaces.BackendPool {
	if refreshInterval <= 0 {
		refreshInterval = DefaultPoolRefreshInterval
	}
	p := &backendPool{
		lister:          helpers.NilPanic(lister, "service.backend_pool.go: lister is required"),
		factory:         helpers.NilPanic(factory, "service.backend_pool.go: factory is required"),
		refreshInterval: refreshInterval,
		logger:          log.With(helpers.NilPanic(logger, "service.backend_pool.go: logger is required"), "component", "backend_pool"),
		transports:      make(map[string]*http.Transport),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go p.refreshLoop()
	return p
}

func (p *backendPool) refreshLoop() {
	defer close(p.done)
	ticker := time.NewTicker(p.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

// refresh closes and forgets transports whose backend no active instance uses.
func (p *backendPool) refresh() {
	live := make(map[string]bool)
	for _, inst := range p.lister.AllActive(context.Background()) {
		live[inst.BackendAddress] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for backend, t := range p.transports {
		if !live[backend] {
			t.CloseIdleConnections()
			delete(p.transports, backend)
			level.Debug(p.logger).Log("msg", "dropped backend transport", "backend", backend)
		}
	}
}

// Transport returns the cached transport for backend, creating it on first use.
func (p *backendPool) Transport(backend string) (http.RoundTripper, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if t := p.transports[backend]; t != nil {
		return t, nil
	}
	t := p.factory(backend)
	p.transports[backend] = t
	return t, nil
}

// Reset drops the backend's transport so the next request opens a fresh connection.
func (p *backendPool) Reset(backend string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t := p.transports[backend]; t != nil {
		t.CloseIdleConnections()
		delete(p.transports, backend)
	}
}

// Close stops the refresh loop and closes idle connections of every backend. Idempotent.
func (p *backendPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
	p.transports = map[string]*http.Transport{}
	p.mu.Unlock()

	close(p.stop)
	<-p.done
	return nil
}

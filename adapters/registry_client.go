package adapters

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	DefaultClientTimeout      = 5 * time.Second
	DefaultClientRetryDelay   = time.Second
	defaultClientHeartbeatGap = 10 * time.Second
)

// ErrInstanceNotFound is returned by Heartbeat when the registry answers NOT_FOUND:
// the instance was evicted or deregistered and must register again.
var ErrInstanceNotFound = errors.New("instance not found")

// RegistryClientConfig configures RegistryClient.
type RegistryClientConfig struct {
	// Timeout bounds dialing and each request/response exchange when ctx has no earlier deadline.
	Timeout time.Duration
	// RetryDelay is the pause between failed registration attempts in Run.
	RetryDelay time.Duration
	// HeartbeatInterval overrides the interval advertised by the registry when positive.
	HeartbeatInterval time.Duration
}

// RegistryClient speaks the registration line protocol over one persistent
// connection. Requests are serialized; a broken connection is redialed on the
// next request. Safe for concurrent use.
type RegistryClient struct {
	addr   string
	cfg    RegistryClientConfig
	dialer net.Dialer
	logger log.Logger

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewRegistryClient creates a client for the registry at addr (host:port). Panics on empty addr or nil logger.
//
// Parameters: addr is the registration listener address; zero fields of cfg take the defaults.
//
// Returns: *RegistryClient; no connection is made until the first request.
//
// Called from services that register themselves and from the scenario runner.
func NewRegistryClient(addr string, cfg RegistryClientConfig, logger log.Logger) *RegistryClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultClientRetryDelay
	}
	return &RegistryClient{
		addr:   helpers.StrPanic(addr, "adapters.registry_client.go: addr is required"),
		cfg:    cfg,
		dialer: net.Dialer{Timeout: cfg.Timeout},
		logger: log.With(helpers.NilPanic(logger, "adapters.registry_client.go: logger is required"), "component", "RegistryClient"),
	}
}

// Register sends REGISTER|name|backend[|lease].
//
// Returns: (registration, nil) on SUCCESS; allocation_exhausted, bad_parameter, rate_limited
// or internal_server_error MyError on FAILED; a plain error on transport failure.
func (c *RegistryClient) Register(ctx context.Context, name, backend string, leaseSeconds int) (domain.Registration, error) {
	resp, err := c.roundTrip(ctx, domain.Request{Command: domain.CmdRegister, Name: name, Backend: backend, LeaseSeconds: leaseSeconds})
	if err != nil {
		return domain.Registration{}, err
	}
	if resp.Status == domain.StatusFailed {
		return domain.Registration{}, failedError(resp)
	}
	return resp.ParseRegistration()
}

// Heartbeat sends HEARTBEAT|id. Returns ErrInstanceNotFound on NOT_FOUND.
func (c *RegistryClient) Heartbeat(ctx context.Context, instanceID string) error {
	resp, err := c.roundTrip(ctx, domain.Request{Command: domain.CmdHeartbeat, InstanceID: instanceID})
	if err != nil {
		return err
	}
	switch resp.Status {
	case domain.StatusHeartbeatOK:
		return nil
	case domain.StatusNotFound:
		return ErrInstanceNotFound
	case domain.StatusFailed:
		return failedError(resp)
	}
	return unexpected(resp)
}

// Deregister sends DEREGISTER|id. An id that is already gone is acknowledged too.
func (c *RegistryClient) Deregister(ctx context.Context, instanceID string) error {
	resp, err := c.roundTrip(ctx, domain.Request{Command: domain.CmdDeregister, InstanceID: instanceID})
	if err != nil {
		return err
	}
	switch resp.Status {
	case domain.StatusDeregisterOK:
		return nil
	case domain.StatusFailed:
		return failedError(resp)
	}
	return unexpected(resp)
}

// Resolve sends RESOLVE|name and returns the virtual addresses of its active instances.
func (c *RegistryClient) Resolve(ctx context.Context, name string) ([]netip.AddrPort, error) {
	resp, err := c.roundTrip(ctx, domain.Request{Command: domain.CmdResolve, Name: name})
	if err != nil {
		return nil, err
	}
	if resp.Status == domain.StatusFailed {
		return nil, failedError(resp)
	}
	return resp.ParseInstances()
}

// Run keeps one instance of name registered until ctx is done.
//
// It registers (retrying every RetryDelay on failure), heartbeats at the advertised
// interval, and registers again when a heartbeat reports ErrInstanceNotFound. Each new
// registration is passed to onRegistered when it is not nil. On ctx cancellation the
// current instance is deregistered best-effort.
//
// Returns: nil after ctx is done.
func (c *RegistryClient) Run(ctx context.Context, name, backend string, leaseSeconds int, onRegistered func(domain.Registration)) error {
	for {
		reg, ok := c.registerUntilDone(ctx, name, backend, leaseSeconds)
		if !ok {
			return nil
		}
		if onRegistered != nil {
			onRegistered(reg)
		}
		if !c.heartbeatUntilLost(ctx, reg) {
			c.deregisterOnExit(reg.InstanceID)
			return nil
		}
		level.Warn(c.logger).Log("msg", "instance lost, registering again", "name", name, "instance_id", reg.InstanceID)
	}
}

func (c *RegistryClient) registerUntilDone(ctx context.Context, name, backend string, leaseSeconds int) (domain.Registration, bool) {
	for {
		reg, err := c.Register(ctx, name, backend, leaseSeconds)
		if err == nil {
			level.Info(c.logger).Log("msg", "registered", "name", name, "instance_id", reg.InstanceID,
				"virtual", netip.AddrPortFrom(reg.VirtualAddress, reg.VirtualPort))
			return reg, true
		}
		level.Warn(c.logger).Log("msg", "register failed", "name", name, "err", err)
		select {
		case <-ctx.Done():
			return domain.Registration{}, false
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

// heartbeatUntilLost returns true when the registry forgot the instance and false when ctx is done.
func (c *RegistryClient) heartbeatUntilLost(ctx context.Context, reg domain.Registration) bool {
	interval := reg.HeartbeatInterval
	if c.cfg.HeartbeatInterval > 0 {
		interval = c.cfg.HeartbeatInterval
	}
	if interval <= 0 {
		interval = defaultClientHeartbeatGap
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		err := c.Heartbeat(ctx, reg.InstanceID)
		switch {
		case err == nil:
		case errors.Is(err, ErrInstanceNotFound):
			return true
		case ctx.Err() != nil:
			return false
		default:
			level.Warn(c.logger).Log("msg", "heartbeat failed", "instance_id", reg.InstanceID, "err", err)
		}
	}
}

func (c *RegistryClient) deregisterOnExit(instanceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := c.Deregister(ctx, instanceID); err != nil {
		level.Warn(c.logger).Log("msg", "deregister on exit failed", "instance_id", instanceID, "err", err)
		return
	}
	level.Info(c.logger).Log("msg", "deregistered", "instance_id", instanceID)
}

// Close drops the connection. The client stays usable and redials on the next request.
func (c *RegistryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

// errConnClosed marks an exchange that failed because the registry had already
// closed the connection, before any part of a response arrived.
var errConnClosed = errors.New("registry connection closed")

// roundTrip sends req and reads one response line. A request that finds a reused
// connection closed by the registry (idle timeout, restart) is sent once more on
// a fresh connection.
func (c *RegistryClient) roundTrip(ctx context.Context, req domain.Request) (domain.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reused := c.conn != nil
	resp, err := c.exchangeLocked(ctx, req)
	if err != nil && reused && errors.Is(err, errConnClosed) && ctx.Err() == nil {
		level.Debug(c.logger).Log("msg", "registry closed the connection, redialing", "command", req.Command, "err", err)
		resp, err = c.exchangeLocked(ctx, req)
	}
	return resp, err
}

func (c *RegistryClient) exchangeLocked(ctx context.Context, req domain.Request) (domain.Response, error) {
	if c.conn == nil {
		conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return domain.Response{}, fmt.Errorf("dial registry %s: %w", c.addr, err)
		}
		c.conn = conn
		c.r = bufio.NewReader(conn)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	if _, err := io.WriteString(c.conn, req.String()+"\n"); err != nil {
		_ = c.dropLocked()
		if isPeerClosed(err) {
			return domain.Response{}, fmt.Errorf("write %s request: %w: %w", req.Command, errConnClosed, err)
		}
		return domain.Response{}, fmt.Errorf("write %s request: %w", req.Command, err)
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		_ = c.dropLocked()
		if line == "" && isPeerClosed(err) {
			return domain.Response{}, fmt.Errorf("read %s response: %w: %w", req.Command, errConnClosed, err)
		}
		return domain.Response{}, fmt.Errorf("read %s response: %w", req.Command, err)
	}
	resp, err := domain.ParseResponse(line)
	if err != nil {
		_ = c.dropLocked()
		return domain.Response{}, err
	}
	if resp.Status == domain.StatusFailed && len(resp.Fields) > 0 && resp.Fields[0] == domain.ReasonMalformedRequest {
		// the server closes the connection after a malformed request
		_ = c.dropLocked()
	}
	return resp, nil
}

// isPeerClosed reports errors seen when writing to or reading from a connection the peer has closed.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func (c *RegistryClient) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}

// failedError maps FAILED|reason|message to the MyError of the same meaning.
func failedError(resp domain.Response) error {
	reason, message := "", ""
	if len(resp.Fields) > 0 {
		reason = resp.Fields[0]
	}
	if len(resp.Fields) > 1 {
		message = resp.Fields[1]
	}
	switch reason {
	case domain.ReasonAllocationExhausted:
		return service.NewAllocationExhaustedError(message, nil)
	case domain.ReasonMalformedRequest:
		return service.NewBadParameterError(message, nil)
	case domain.ReasonRateLimited:
		return service.NewRateLimitedError(message, nil)
	}
	return service.NewInternalServerError(message, fmt.Errorf("registry failure %q", reason))
}

func unexpected(resp domain.Response) error {
	return fmt.Errorf("unexpected registry response %q", resp.String())
}

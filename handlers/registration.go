package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout    = 5 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultRegistrationRate  = 100
	DefaultRegistrationBurst = 200

	maxRequestLine = 1024
	lingerTimeout  = 500 * time.Millisecond
)

// RegistrationConfig configures the line protocol server.
type RegistrationConfig struct {
	// RequestTimeout bounds the write of each response.
	RequestTimeout time.Duration
	// IdleTimeout bounds the wait for the next request line on an open connection.
	// It must exceed the heartbeat interval so heartbeating clients keep their connection.
	IdleTimeout time.Duration
	// Rate and Burst size the token bucket shared by all connections. Only REGISTER
	// and RESOLVE draw from it.
	Rate  float64
	Burst int
}

func (c RegistrationConfig) withDefaults() RegistrationConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Rate <= 0 {
		c.Rate = DefaultRegistrationRate
	}
	if c.Burst <= 0 {
		c.Burst = DefaultRegistrationBurst
	}
	return c
}

// RequestHandler answers one parsed request.
type RequestHandler func(ctx context.Context, req domain.Request) domain.Response

// Middleware wraps a RequestHandler.
type Middleware func(next RequestHandler) RequestHandler

// Chain composes middlewares; the first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next RequestHandler) RequestHandler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RateLimitMiddleware answers FAILED|rate_limited once the token bucket is empty.
// Only requests whose command is listed draw tokens; the rest always pass.
func RateLimitMiddleware(r float64, burst int, commands ...string) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	limited := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		limited[cmd] = struct{}{}
	}
	return func(next RequestHandler) RequestHandler {
		return func(ctx context.Context, req domain.Request) domain.Response {
			if _, ok := limited[req.Command]; !ok {
				return next(ctx, req)
			}
			if !limiter.Allow() {
				return domain.FailedResponse(domain.ReasonRateLimited, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs each request with its outcome and duration at debug level.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next RequestHandler) RequestHandler {
		return func(ctx context.Context, req domain.Request) domain.Response {
			start := time.Now()
			resp := next(ctx, req)
			level.Debug(logger).Log("msg", "request", "command", req.Command, "status", resp.Status, "duration", time.Since(start))
			return resp
		}
	}
}

// RegistrationServer serves the registration line protocol: newline-terminated
// REGISTER, HEARTBEAT, DEREGISTER and RESOLVE requests, several per connection.
// A malformed request is answered with FAILED|malformed_request and the
// connection is closed.
type RegistrationServer struct {
	registry interfaces.Registry
	cfg      RegistrationConfig
	handler  RequestHandler
	logger   log.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// NewRegistrationServer creates the server. Panics on nil registry or logger.
func NewRegistrationServer(registry interfaces.Registry, cfg RegistrationConfig, logger log.Logger) *RegistrationServer {
	s := &RegistrationServer{
		registry: helpers.NilPanic(registry, "handlers.registration.go: registry is required"),
		cfg:      cfg.withDefaults(),
		logger:   log.With(helpers.NilPanic(logger, "handlers.registration.go: logger is required"), "component", "RegistrationServer"),
		conns:    make(map[net.Conn]struct{}),
	}
	s.handler = Chain(
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(s.cfg.Rate, s.cfg.Burst, domain.CmdRegister, domain.CmdResolve),
	)(s.dispatch)
	return s
}

// ListenAndServe listens on addr and serves until Close or ctx is done.
func (s *RegistrationServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("registration listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis. Returns nil after Close.
func (s *RegistrationServer) Serve(ctx context.Context, lis net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = lis.Close()
		return nil
	}
	s.listener = lis
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	level.Info(s.logger).Log("msg", "registration server listening", "addr", lis.Addr())
	for {
		conn, err := lis.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("registration accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *RegistrationServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes open connections and waits for their handlers. Idempotent.
func (s *RegistrationServer) Close() error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

func (s *RegistrationServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *RegistrationServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *RegistrationServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := log.With(s.logger, "peer", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 256), maxRequestLine)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		if !scanner.Scan() {
			err := scanner.Err()
			if errors.Is(err, bufio.ErrTooLong) {
				_ = s.write(conn, domain.FailedResponse(domain.ReasonMalformedRequest, "request line too long"))
				lingerClose(conn)
			} else if err != nil && !errors.Is(err, io.EOF) && !s.closed.Load() {
				level.Debug(logger).Log("msg", "connection read ended", "err", err)
			}
			return
		}

		req, err := domain.ParseRequest(scanner.Text())
		if err != nil {
			level.Warn(logger).Log("msg", "malformed request", "err", err)
			_ = s.write(conn, domain.FailedResponse(domain.ReasonMalformedRequest, err.Error()))
			lingerClose(conn)
			return
		}

		resp := s.handler(ctx, req)
		if err := s.write(conn, resp); err != nil {
			level.Debug(logger).Log("msg", "write response failed", "err", err)
			return
		}
		if isMalformed(resp) {
			lingerClose(conn)
			return
		}
	}
}

// lingerClose half-closes conn and discards what the peer still sends for a
// short while, so the final response is not lost to a reset.
func lingerClose(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	_ = cw.CloseWrite()
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, 64<<10))
}

func (s *RegistrationServer) write(conn net.Conn, resp domain.Response) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.RequestTimeout))
	_, err := io.WriteString(conn, resp.String()+"\n")
	return err
}

// dispatch executes a parsed request against the registry.
func (s *RegistrationServer) dispatch(ctx context.Context, req domain.Request) domain.Response {
	switch req.Command {
	case domain.CmdRegister:
		reg, err := s.registry.Register(ctx, req.Name, req.Backend, req.LeaseSeconds)
		if err != nil {
			return s.failure(err)
		}
		return domain.SuccessResponse(reg)

	case domain.CmdHeartbeat:
		if _, err := s.registry.Heartbeat(ctx, req.InstanceID); err != nil {
			if service.IsEntityNotFoundError(err) {
				return domain.Response{Status: domain.StatusNotFound, Fields: []string{req.InstanceID}}
			}
			return s.failure(err)
		}
		return domain.Response{Status: domain.StatusHeartbeatOK, Fields: []string{req.InstanceID}}

	case domain.CmdDeregister:
		if _, err := s.registry.Deregister(ctx, req.InstanceID); err != nil && !service.IsEntityNotFoundError(err) {
			return s.failure(err)
		}
		return domain.Response{Status: domain.StatusDeregisterOK, Fields: []string{req.InstanceID}}

	case domain.CmdResolve:
		if err := domain.ValidateServiceName(req.Name); err != nil {
			return domain.FailedResponse(domain.ReasonMalformedRequest, err.Error())
		}
		instances := s.registry.Resolve(ctx, req.Name)
		addrs := make([]netip.AddrPort, 0, len(instances))
		for _, inst := range instances {
			addrs = append(addrs, inst.VirtualAddrPort())
		}
		return domain.InstancesResponse(addrs)
	}
	return domain.FailedResponse(domain.ReasonMalformedRequest, "unknown command")
}

func (s *RegistrationServer) failure(err error) domain.Response {
	switch {
	case service.IsAllocationExhaustedError(err):
		return domain.FailedResponse(domain.ReasonAllocationExhausted, wireMessage(err))
	case service.IsBadParameterError(err):
		return domain.FailedResponse(domain.ReasonMalformedRequest, wireMessage(err))
	}
	level.Error(s.logger).Log("msg", "request failed", "err", err)
	return domain.FailedResponse(domain.ReasonInternalError, "internal error")
}

func wireMessage(err error) string {
	me := service.ToMyError(err)
	if me == nil {
		return err.Error()
	}
	if me.Inner != nil {
		return me.Message + ": " + me.Inner.Error()
	}
	return me.Message
}

func isMalformed(resp domain.Response) bool {
	return resp.Status == domain.StatusFailed && len(resp.Fields) > 0 && resp.Fields[0] == domain.ReasonMalformedRequest
}

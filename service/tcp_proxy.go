package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// maxNameHintLen bounds the first line a name-hint client may send.
	maxNameHintLen = 256

	DefaultProxyDialTimeout = 5 * time.Second
	DefaultProxyHintTimeout = 5 * time.Second
	DefaultProxyIdleTimeout = 5 * time.Minute
)

// TCPProxyConfig holds the timeouts of one TCP proxy listener.
type TCPProxyConfig struct {
	DialTimeout time.Duration // backend connect
	HintTimeout time.Duration // reading the name-hint line
	IdleTimeout time.Duration // no bytes in either direction
}

func (c TCPProxyConfig) withDefaults() TCPProxyConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultProxyDialTimeout
	}
	if c.HintTimeout <= 0 {
		c.HintTimeout = DefaultProxyHintTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultProxyIdleTimeout
	}
	return c
}

// TCPProxy relays TCP connections to live instances of a service.
//
// A route with a fixed service forwards every accepted connection to that
// service. A route without one expects the client to send the service name
// on the first line; failures are then reported back as "ERROR|code|message".
// A failed backend dial gets exactly one reselection among the other
// instances of the same resolve result.
type TCPProxy struct {
	route    domain.TCPRoute
	resolver interfaces.Resolver
	selector *Selector
	dialer   interfaces.Dialer
	cfg      TCPProxyConfig
	logger   log.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// NewTCPProxy creates a proxy for route. Panics on nil resolver, selector, dialer or logger.
func NewTCPProxy(
	route domain.TCPRoute,
	resolver interfaces.Resolver,
	selector *Selector,
	dialer interfaces.Dialer,
	cfg TCPProxyConfig,
	logger log.Logger,
) *TCPProxy {
	return &TCPProxy{
		route:    route,
		resolver: helpers.NilPanic(resolver, "service.tcp_proxy.go: resolver is required"),
		selector: helpers.NilPanic(selector, "service.tcp_proxy.go: selector is required"),
		dialer:   helpers.NilPanic(dialer, "service.tcp_proxy.go: dialer is required"),
		cfg:      cfg.withDefaults(),
		logger:   log.With(helpers.NilPanic(logger, "service.tcp_proxy.go: logger is required"), "component", "tcp_proxy", "listen", route.Listen),
		conns:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the route's address and serves until Close.
func (p *TCPProxy) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", helpers.StrPanic(p.route.Listen, "service.tcp_proxy.go: listen address is required"))
	if err != nil {
		return fmt.Errorf("tcp proxy listen %s: %w", p.route.Listen, err)
	}
	return p.Serve(ctx, lis)
}

// Serve accepts connections on lis until Close is called or ctx is done.
// Returns nil after a clean shutdown.
func (p *TCPProxy) Serve(ctx context.Context, lis net.Listener) error {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		_ = lis.Close()
		return nil
	}
	p.listener = lis
	p.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	level.Info(p.logger).Log("msg", "tcp proxy listening", "addr", lis.Addr(), "service", p.route.Service, "name_hint", p.route.UsesNameHint())
	for {
		conn, err := lis.Accept()
		if err != nil {
			if p.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				level.Warn(p.logger).Log("msg", "accept timeout", "err", err)
				continue
			}
			return fmt.Errorf("tcp proxy accept: %w", err)
		}
		if !p.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer p.untrack(conn)
			p.handle(ctx, conn)
		}()
	}
}

// Addr returns the listening address, or nil before Serve.
func (p *TCPProxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Close stops accepting, closes every relayed connection and waits for the
// handlers to return. Idempotent.
func (p *TCPProxy) Close() error {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		p.wg.Wait()
		return nil
	}
	var err error
	if p.listener != nil {
		err = p.listener.Close()
	}
	for c := range p.conns {
		_ = c.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return err
}

func (p *TCPProxy) track(conn net.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return false
	}
	p.conns[conn] = struct{}{}
	p.wg.Add(1)
	return true
}

func (p *TCPProxy) untrack(conn net.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	p.wg.Done()
}

func (p *TCPProxy) handle(ctx context.Context, client net.Conn) {
	defer client.Close()
	logger := log.With(p.logger, "peer", client.RemoteAddr())

	var clientReader io.Reader = client
	name := p.route.Service
	if p.route.UsesNameHint() {
		br := bufio.NewReaderSize(client, maxNameHintLen)
		hint, err := readNameHint(client, br, p.cfg.HintTimeout)
		if err != nil {
			level.Debug(logger).Log("msg", "bad name hint", "err", err)
			p.reply(client, err)
			return
		}
		name = hint
		clientReader = br
	}

	backend, inst, err := p.connect(ctx, name)
	if err != nil {
		level.Warn(logger).Log("msg", "proxy connection failed", "service", name, "err", err)
		p.reply(client, err)
		return
	}
	defer backend.Close()

	level.Debug(logger).Log("msg", "relaying", "service", name, "instance_id", inst.InstanceID, "backend", inst.BackendAddress)
	relay(client, clientReader, backend, p.cfg.IdleTimeout)
}

// connect resolves name and dials the selected instance, reselecting once on failure.
func (p *TCPProxy) connect(ctx context.Context, name string) (net.Conn, domain.Instance, error) {
	instances := p.resolver.Resolve(ctx, name)
	first, ok := p.selector.Next(name, instances)
	if !ok {
		return nil, domain.Instance{}, NewServiceUnavailableError("no live instance of "+name, nil)
	}
	conn, err := p.dial(ctx, first)
	if err == nil {
		return conn, first, nil
	}
	level.Warn(p.logger).Log("msg", "backend dial failed, reselecting", "service", name, "instance_id", first.InstanceID, "backend", first.BackendAddress, "err", err)

	second, ok := p.selector.NextExcluding(name, instances, first.InstanceID)
	if !ok {
		return nil, domain.Instance{}, NewBackendUnreachableError("backend unreachable for "+name, err)
	}
	conn, err = p.dial(ctx, second)
	if err != nil {
		return nil, domain.Instance{}, NewBackendUnreachableError("backend unreachable for "+name, err)
	}
	return conn, second, nil
}

func (p *TCPProxy) dial(ctx context.Context, inst domain.Instance) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	defer cancel()
	return p.dialer.DialContext(dialCtx, "tcp", inst.BackendAddress)
}

// reply reports err to a name-hint client. Fixed routes have no protocol to
// report in, so their clients just see the connection close.
func (p *TCPProxy) reply(client net.Conn, err error) {
	if !p.route.UsesNameHint() {
		return
	}
	code := ToMyErrorCode(err)
	if code == "" {
		code = ErrInternalServerError
	}
	msg := err.Error()
	if me := ToMyError(err); me != nil {
		msg = me.Message
	}
	_ = client.SetWriteDeadline(time.Now().Add(p.cfg.HintTimeout))
	_, _ = io.WriteString(client, "ERROR|"+code+"|"+msg+"\n")
}

// readNameHint reads the newline-terminated service name. Bytes after the
// newline stay buffered in br and are relayed to the backend.
func readNameHint(conn net.Conn, br *bufio.Reader, timeout time.Duration) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	line, err := br.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", NewBadParameterError("service name line too long", nil)
		}
		if len(line) == 0 {
			return "", NewBadParameterError("missing service name", err)
		}
	}
	name := strings.TrimSpace(string(line))
	if err := domain.ValidateServiceName(name); err != nil {
		return "", NewBadParameterError("invalid service name", err)
	}
	return name, nil
}

type closeWriter interface {
	CloseWrite() error
}

// relay copies bytes both ways until each direction hits EOF or an error.
// EOF in one direction half-closes the other side; an error closes both.
func relay(client net.Conn, clientReader io.Reader, backend net.Conn, idle time.Duration) {
	var wg sync.WaitGroup
	pipe := func(dst net.Conn, src net.Conn, r io.Reader) {
		defer wg.Done()
		_, err := io.Copy(dst, &idleReader{conn: src, r: r, idle: idle})
		if err != nil {
			_ = dst.Close()
			_ = src.Close()
			return
		}
		if cw, ok := dst.(closeWriter); ok {
			_ = cw.CloseWrite()
		} else {
			_ = dst.Close()
		}
	}
	wg.Add(2)
	go pipe(backend, client, clientReader)
	go pipe(client, backend, backend)
	wg.Wait()
}

// idleReader extends the read deadline of conn before every read.
type idleReader struct {
	conn net.Conn
	r    io.Reader
	idle time.Duration
}

func (i *idleReader) Read(b []byte) (int, error) {
	_ = i.conn.SetReadDeadline(time.Now().Add(i.idle))
	return i.r.Read(b)
}

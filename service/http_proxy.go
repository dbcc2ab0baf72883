package service

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/netip"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// DefaultMaxProxyBodyBytes bounds the request body the HTTP proxy buffers for a retry.
const DefaultMaxProxyBodyBytes = 10 << 20

// hopHeaders are removed from forwarded requests and responses.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// HTTPProxy forwards HTTP requests to live instances of the service named by
// a configured route or by the Host header. Request bodies are buffered up to
// maxBodyBytes so a failed attempt can be replayed.
type HTTPProxy struct {
	routes       []domain.HTTPRoute
	domainSuffix string
	resolver     interfaces.Resolver
	selector     *Selector
	pool         interfaces.BackendPool
	maxBodyBytes int64
	logger       log.Logger
}

// proxyTarget is where one request goes: either a service name to balance
// over or an instance pinned by its virtual address.
type proxyTarget struct {
	name   string
	path   string
	pinned *domain.Instance
}

// NewHTTPProxy validates cfg and creates the proxy. Routes are ordered so that
// host-bound routes come first and longer path prefixes win.
// Panics on nil resolver, selector, pool or logger.
func NewHTTPProxy(
	cfg domain.HTTPProxyConfig,
	resolver interfaces.Resolver,
	selector *Selector,
	pool interfaces.BackendPool,
	logger log.Logger,
) (*HTTPProxy, error) {
	if err := domain.ValidateHTTPProxyConfig(cfg); err != nil {
		return nil, err
	}
	routes := make([]domain.HTTPRoute, len(cfg.Routes))
	copy(routes, cfg.Routes)
	sort.SliceStable(routes, func(i, j int) bool {
		if (routes[i].Host != "") != (routes[j].Host != "") {
			return routes[i].Host != ""
		}
		return len(routes[i].PathPrefix) > len(routes[j].PathPrefix)
	})

	return &HTTPProxy{
		routes:       routes,
		domainSuffix: strings.ToLower(strings.Trim(cfg.DomainSuffix, ".")),
		resolver:     helpers.NilPanic(resolver, "service.http_proxy.go: resolver is required"),
		selector:     helpers.NilPanic(selector, "service.http_proxy.go: selector is required"),
		pool:         helpers.NilPanic(pool, "service.http_proxy.go: pool is required"),
		maxBodyBytes: DefaultMaxProxyBodyBytes,
		logger:       log.With(helpers.NilPanic(logger, "service.http_proxy.go: logger is required"), "component", "http_proxy"),
	}, nil
}

// Register installs the catch-all proxy route on e.
func (p *HTTPProxy) Register(e *echo.Echo) {
	e.Any("/*", p.Handle)
}

// Handle proxies one request. Returned errors are rendered by the MyError handler:
// bad_parameter when no target can be derived, service_unavailable when the
// target has no live instance and backend_unreachable after the retries.
func (p *HTTPProxy) Handle(c echo.Context) error {
	req := c.Request()
	target, err := p.target(req)
	if err != nil {
		return err
	}
	body, err := readBody(req.Body, p.maxBodyBytes)
	if err != nil {
		return err
	}

	var resp *http.Response
	if target.pinned != nil {
		resp, err = p.forward(req, *target.pinned, target.path, body)
		if err != nil {
			return NewBackendUnreachableError("backend unreachable for "+target.pinned.Name, err)
		}
	} else {
		resp, err = p.forwardBalanced(req, target, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	return p.writeResponse(c, resp)
}

func (p *HTTPProxy) forwardBalanced(req *http.Request, target proxyTarget, body []byte) (*http.Response, error) {
	instances := p.resolver.Resolve(req.Context(), target.name)
	first, ok := p.selector.Next(target.name, instances)
	if !ok {
		return nil, NewServiceUnavailableError("no live instance of "+target.name, nil)
	}
	resp, err := p.forward(req, first, target.path, body)
	if err == nil {
		return resp, nil
	}
	var sent *requestSentError
	if errors.As(err, &sent) {
		return nil, NewBackendUnreachableError("backend unreachable for "+target.name, err)
	}
	level.Warn(p.logger).Log("msg", "backend request failed, reselecting", "service", target.name, "instance_id", first.InstanceID, "backend", first.BackendAddress, "err", err)

	second, ok := p.selector.NextExcluding(target.name, instances, first.InstanceID)
	if !ok {
		return nil, NewBackendUnreachableError("backend unreachable for "+target.name, err)
	}
	resp, err = p.forward(req, second, target.path, body)
	if err != nil {
		return nil, NewBackendUnreachableError("backend unreachable for "+target.name, err)
	}
	return resp, nil
}

// forward sends the request to inst. A failure on a reused connection is
// retried once on a fresh connection to the same backend when the method is
// idempotent or the request never reached the wire; otherwise the error is a
// *requestSentError.
func (p *HTTPProxy) forward(in *http.Request, inst domain.Instance, path string, body []byte) (*http.Response, error) {
	resp, tried, err := p.roundTrip(in, inst.BackendAddress, path, body)
	if err == nil {
		return resp, nil
	}
	if !replayable(in.Method, tried) {
		return nil, &requestSentError{err: err}
	}
	if !tried.reused {
		return nil, err
	}
	level.Debug(p.logger).Log("msg", "reused connection failed, retrying on a fresh one", "backend", inst.BackendAddress, "method", in.Method, "err", err)
	p.pool.Reset(inst.BackendAddress)
	resp, tried, err = p.roundTrip(in, inst.BackendAddress, path, body)
	if err != nil && !replayable(in.Method, tried) {
		return nil, &requestSentError{err: err}
	}
	return resp, err
}

// requestSentError is a failure after a non-idempotent request was written to
// the backend. Such a request is never sent again, to that backend or another.
type requestSentError struct {
	err error
}

func (e *requestSentError) Error() string { return e.err.Error() }

func (e *requestSentError) Unwrap() error { return e.err }

func replayable(method string, a attempt) bool {
	return !a.wrote || isIdempotent(method)
}

// attempt records what happened to the connection during one round trip.
type attempt struct {
	reused bool
	wrote  bool
}

func (p *HTTPProxy) roundTrip(in *http.Request, backend, path string, body []byte) (*http.Response, attempt, error) {
	rt, err := p.pool.Transport(backend)
	if err != nil {
		return nil, attempt{}, err
	}
	out, err := outgoingRequest(in, backend, path, body)
	if err != nil {
		return nil, attempt{}, err
	}
	var reused, wrote atomic.Bool
	trace := &httptrace.ClientTrace{
		GotConn:      func(info httptrace.GotConnInfo) { reused.Store(info.Reused) },
		WroteRequest: func(info httptrace.WroteRequestInfo) { wrote.Store(info.Err == nil) },
	}
	out = out.WithContext(httptrace.WithClientTrace(out.Context(), trace))
	resp, err := rt.RoundTrip(out)
	return resp, attempt{reused: reused.Load(), wrote: wrote.Load()}, err
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (p *HTTPProxy) writeResponse(c echo.Context, resp *http.Response) error {
	header := c.Response().Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	removeHopHeaders(header)
	c.Response().WriteHeader(resp.StatusCode)

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Response().Write(buf[:n]); werr != nil {
				return nil
			}
			c.Response().Flush()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				level.Warn(p.logger).Log("msg", "response body copy aborted", "path", c.Request().URL.Path, "err", err)
			}
			return nil
		}
	}
}

// target derives the destination of req. Order: a Host that is an allocated
// virtual address, then configured routes, then the first Host label.
func (p *HTTPProxy) target(req *http.Request) (proxyTarget, error) {
	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	if ap, err := netip.ParseAddrPort(req.Host); err == nil {
		if inst, err := p.resolver.LookupAddress(req.Context(), ap); err == nil {
			return proxyTarget{name: inst.Name, path: path, pinned: &inst}, nil
		}
	}

	host := hostOnly(req.Host)
	for _, r := range p.routes {
		if r.Host != "" && !strings.EqualFold(r.Host, host) {
			continue
		}
		if r.PathPrefix != "" && !hasPathPrefix(path, r.PathPrefix) {
			continue
		}
		out := path
		if r.StripPrefix {
			out = "/" + strings.TrimLeft(strings.TrimPrefix(path, strings.TrimSuffix(r.PathPrefix, "/")), "/")
		}
		return proxyTarget{name: r.Service, path: out}, nil
	}

	name, err := p.nameFromHost(host)
	if err != nil {
		return proxyTarget{}, err
	}
	return proxyTarget{name: name, path: path}, nil
}

func (p *HTTPProxy) nameFromHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", NewBadParameterError("missing Host header", nil)
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return "", NewBadParameterError("cannot derive a service name from host "+host, nil)
	}
	if p.domainSuffix != "" {
		host = strings.TrimSuffix(host, "."+p.domainSuffix)
	}
	name, _, _ := strings.Cut(host, ".")
	if err := domain.ValidateServiceName(name); err != nil {
		return "", NewBadParameterError("invalid service name in host "+host, err)
	}
	return name, nil
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

// hasPathPrefix matches prefix on path segment boundaries: /api matches /api and /api/x, not /apix.
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}

func readBody(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, NewBadParameterError("cannot read request body", err)
	}
	if int64(len(body)) > limit {
		return nil, NewBadParameterError("request body too large", nil)
	}
	return body, nil
}

func outgoingRequest(in *http.Request, backend, path string, body []byte) (*http.Request, error) {
	u := &url.URL{Scheme: "http", Host: backend, Path: path, RawQuery: in.URL.RawQuery}
	out, err := http.NewRequestWithContext(in.Context(), in.Method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, NewBadParameterError("cannot build backend request", err)
	}
	out.Header = in.Header.Clone()
	removeHopHeaders(out.Header)
	out.Host = in.Host

	if ip, _, err := net.SplitHostPort(in.RemoteAddr); err == nil {
		if prior := out.Header.Values("X-Forwarded-For"); len(prior) > 0 {
			ip = strings.Join(prior, ", ") + ", " + ip
		}
		out.Header.Set("X-Forwarded-For", ip)
	}
	out.Header.Set("X-Forwarded-Host", in.Host)
	if in.TLS == nil {
		out.Header.Set("X-Forwarded-Proto", "http")
	} else {
		out.Header.Set("X-Forwarded-Proto", "https")
	}
	return out, nil
}

// removeHopHeaders drops hop-by-hop headers, including any named in Connection.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

package domain

import (
	"strconv"
	"strings"
)

// TCPRoute binds one TCP proxy listener to a service. An empty Service means
// the client announces the target itself in a newline-terminated first line.
type TCPRoute struct {
	Listen  string
	Service string
}

// UsesNameHint reports whether the route reads the service name from the client.
func (r TCPRoute) UsesNameHint() bool {
	return r.Service == ""
}

// HTTPRoute maps requests to a service by Host, path prefix or both.
// An empty Host matches any host; an empty PathPrefix matches any path.
type HTTPRoute struct {
	Host        string
	PathPrefix  string
	Service     string
	StripPrefix bool
}

// HTTPProxyConfig configures the HTTP proxy. Requests that match no route are
// routed by the first label of the Host header after DomainSuffix is removed.
type HTTPProxyConfig struct {
	Listen       string
	DomainSuffix string
	Routes       []HTTPRoute
}

// ValidateTCPRoutes checks each route has a listen address, that listen
// addresses are unique and that fixed service names are valid.
func ValidateTCPRoutes(routes []TCPRoute) error {
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		if strings.TrimSpace(r.Listen) == "" {
			return &RouteConfigError{Kind: "tcp_proxies", Index: i, Reason: "listen must be non-empty"}
		}
		if seen[r.Listen] {
			return &RouteConfigError{Kind: "tcp_proxies", Index: i, Reason: "duplicate listen address " + r.Listen}
		}
		seen[r.Listen] = true
		if !r.UsesNameHint() {
			if err := ValidateServiceName(r.Service); err != nil {
				return &RouteConfigError{Kind: "tcp_proxies", Index: i, Reason: err.Error()}
			}
		}
	}
	return nil
}

// ValidateHTTPProxyConfig checks every route names a valid service, has at
// least one of host or path_prefix, and that path prefixes start with "/".
func ValidateHTTPProxyConfig(cfg HTTPProxyConfig) error {
	for i, r := range cfg.Routes {
		if err := ValidateServiceName(r.Service); err != nil {
			return &RouteConfigError{Kind: "http_proxy.routes", Index: i, Reason: err.Error()}
		}
		if r.Host == "" && r.PathPrefix == "" {
			return &RouteConfigError{Kind: "http_proxy.routes", Index: i, Reason: "host or path_prefix is required"}
		}
		if r.PathPrefix != "" && r.PathPrefix[0] != '/' {
			return &RouteConfigError{Kind: "http_proxy.routes", Index: i, Reason: "path_prefix must start with /"}
		}
		if r.StripPrefix && r.PathPrefix == "" {
			return &RouteConfigError{Kind: "http_proxy.routes", Index: i, Reason: "strip_prefix requires path_prefix"}
		}
	}
	return nil
}

// RouteConfigError is returned by the route validators; Kind names the config section.
type RouteConfigError struct {
	Kind   string
	Index  int
	Reason string
}

func (e *RouteConfigError) Error() string {
	return e.Kind + "[" + strconv.Itoa(e.Index) + "]: " + e.Reason
}

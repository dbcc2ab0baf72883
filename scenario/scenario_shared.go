package scenario

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/jrtxreal/netsel/adapters"

	"github.com/go-kit/log"
)

const namePrefix = "scenario"

// uniqueName returns a service name that does not collide with earlier runs against the same deployment.
func uniqueName(kind string) string {
	return fmt.Sprintf("%s-%s-%d", namePrefix, kind, time.Now().UnixNano())
}

// CreateRegistryClient creates a line protocol client for cfg.RegistryAddr.
// Returns the client and a dispose function that closes its connection.
func CreateRegistryClient(cfg *Config) (*adapters.RegistryClient, func()) {
	client := adapters.NewRegistryClient(cfg.RegistryAddr, adapters.RegistryClientConfig{}, log.NewNopLogger())
	return client, func() { _ = client.Close() }
}

// CreateAdminClient creates an admin API client for cfg.AdminURL.
func CreateAdminClient(cfg *Config) *adapters.AdminClient {
	return adapters.NewAdminClient(strings.TrimRight(cfg.AdminURL, "/"), &http.Client{Timeout: 10 * time.Second})
}

func backendListenAddr(cfg *Config) string {
	host := cfg.BackendHost
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, "0")
}

// tcpBackend accepts connections, writes its tag and a newline, then echoes.
type tcpBackend struct {
	tag string
	lis net.Listener
	wg  sync.WaitGroup
}

func startTCPBackend(cfg *Config, tag string) (*tcpBackend, error) {
	lis, err := net.Listen("tcp", backendListenAddr(cfg))
	if err != nil {
		return nil, fmt.Errorf("start tcp backend %s: %w", tag, err)
	}
	b := &tcpBackend{tag: tag, lis: lis}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if _, err := io.WriteString(conn, tag+"\n"); err != nil {
					return
				}
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()
	return b, nil
}

func (b *tcpBackend) Addr() string { return b.lis.Addr().String() }

func (b *tcpBackend) Close() {
	_ = b.lis.Close()
	b.wg.Wait()
}

// httpBackend answers every request with its tag in the body and the
// X-Forwarded-Host it received in a response header.
type httpBackend struct {
	srv *http.Server
	lis net.Listener
}

func startHTTPBackend(cfg *Config, tag string) (*httpBackend, error) {
	lis, err := net.Listen("tcp", backendListenAddr(cfg))
	if err != nil {
		return nil, fmt.Errorf("start http backend %s: %w", tag, err)
	}
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Seen-Forwarded-Host", r.Header.Get("X-Forwarded-Host"))
			_, _ = io.WriteString(w, tag)
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(lis) }()
	return &httpBackend{srv: srv, lis: lis}, nil
}

func (b *httpBackend) Addr() string { return b.lis.Addr().String() }

func (b *httpBackend) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.srv.Shutdown(ctx)
}

// dialByName opens a connection through a name-hint TCP proxy and returns the
// first line the other side sends: a backend tag, or an ERROR|... line from the proxy.
func dialByName(ctx context.Context, proxyAddr, name string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return "", fmt.Errorf("dial tcp proxy: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(conn, name+"\n"); err != nil {
		return "", fmt.Errorf("write service name: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read first line: %w", err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// resolveContains reports whether RESOLVE name lists addr.
func resolveContains(ctx context.Context, client *adapters.RegistryClient, name string, addr netip.AddrPort) (bool, error) {
	addrs, err := client.Resolve(ctx, name)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", name, err)
	}
	for _, a := range addrs {
		if a == addr {
			return true, nil
		}
	}
	return false, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errConditionTimeout = errors.New("condition not met in time")

// waitFor polls cond every interval until it returns true, fails, or timeout elapses.
func waitFor(ctx context.Context, timeout, interval time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errConditionTimeout
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

func pollInterval(cfg *Config) time.Duration {
	d := cfg.HealthCheckInterval / 4
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const scenarioHTTPHostRouting = "http_host_routing"

func init() {
	Register(scenarioHTTPHostRouting, runHTTPHostRouting)
}

// runHTTPHostRouting registers two HTTP backends under one name and sends four
// requests through the HTTP proxy with that name as the Host header. The
// backends must alternate and see the original host in X-Forwarded-Host.
// Without live instances the proxy must answer 503.
func runHTTPHostRouting(ctx context.Context, cfg *Config) error {
	const requests = 4

	client, dispose := CreateRegistryClient(cfg)
	defer dispose()
	httpClient := &http.Client{Timeout: 10 * time.Second}

	name := uniqueName("svc-c")
	tags := []string{"c1", "c2"}
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		backend, err := startHTTPBackend(cfg, tag)
		if err != nil {
			return err
		}
		defer backend.Close()

		reg, err := client.Register(ctx, name, backend.Addr(), 0)
		if err != nil {
			return fmt.Errorf("register %s backend %s: %w", name, tag, err)
		}
		ids = append(ids, reg.InstanceID)
	}

	var previous string
	for i := 0; i < requests; i++ {
		status, body, forwardedHost, err := getByHost(ctx, httpClient, cfg.HTTPProxyAddr, name)
		if err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("request %d: status %d, body %q", i+1, status, body)
		}
		if body == previous {
			return fmt.Errorf("request %d: backend %s served twice in a row", i+1, body)
		}
		if forwardedHost != name {
			return fmt.Errorf("request %d: backend saw X-Forwarded-Host %q, want %q", i+1, forwardedHost, name)
		}
		previous = body
	}

	for _, id := range ids {
		if err := client.Deregister(ctx, id); err != nil {
			return fmt.Errorf("deregister %s: %w", id, err)
		}
	}
	status, body, _, err := getByHost(ctx, httpClient, cfg.HTTPProxyAddr, name)
	if err != nil {
		return fmt.Errorf("request after deregistration: %w", err)
	}
	if status != http.StatusServiceUnavailable {
		return fmt.Errorf("request after deregistration: status %d, body %q, want 503", status, body)
	}
	return nil
}

func getByHost(ctx context.Context, client *http.Client, proxyAddr, host string) (int, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+proxyAddr+"/", nil)
	if err != nil {
		return 0, "", "", err
	}
	req.Host = host
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", "", err
	}
	return resp.StatusCode, string(body), resp.Header.Get("X-Seen-Forwarded-Host"), nil
}

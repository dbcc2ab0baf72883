package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
)

// AdminClient talks to the registry admin API: GET /v1/instances, GET /v1/stats
// and POST /v1/unregister/{instance_id}.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

// NewAdminClient creates an AdminClient. Panics on empty baseURL or nil client.
//
// Parameters: baseURL is the admin API base URL without a trailing slash (e.g. http://netsel:8082); client should carry a timeout.
//
// Called from the scenario runner to observe registry state without the line protocol.
func NewAdminClient(baseURL string, client *http.Client) *AdminClient {
	return &AdminClient{
		baseURL: helpers.StrPanic(baseURL, "adapters.admin_client.go: baseURL is required"),
		client:  helpers.NilPanic(client, "adapters.admin_client.go: http client is required"),
	}
}

// instancesResponse is the JSON shape of GET /v1/instances: { "instances": [ instanceInfo ] }.
type instancesResponse struct {
	Instances []instanceInfo `json:"instances"`
}

type instanceInfo struct {
	Name            string    `json:"name"`
	InstanceID      string    `json:"instance_id"`
	VirtualIP       string    `json:"virtual_ip"`
	VirtualPort     uint16    `json:"virtual_port"`
	BackendAddress  string    `json:"backend_address"`
	RegisteredAt    time.Time `json:"registered_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	LeaseSeconds    int       `json:"lease_seconds"`
	Status          string    `json:"status"`
}

// GetInstances performs GET baseURL/v1/instances.
//
// Returns: ([]domain.Instance, nil) on 200 (possibly empty); (nil, error) on other status,
// network error, a missing "instances" field or an unparsable virtual_ip.
func (a *AdminClient) GetInstances(ctx context.Context) ([]domain.Instance, error) {
	var raw instancesResponse
	if err := a.getJSON(ctx, "/v1/instances", &raw); err != nil {
		return nil, err
	}
	if raw.Instances == nil {
		return nil, fmt.Errorf("admin response missing instances field")
	}
	out := make([]domain.Instance, 0, len(raw.Instances))
	for _, r := range raw.Instances {
		addr, err := netip.ParseAddr(r.VirtualIP)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", r.InstanceID, err)
		}
		out = append(out, domain.Instance{
			Name:            r.Name,
			InstanceID:      r.InstanceID,
			VirtualAddress:  addr,
			VirtualPort:     r.VirtualPort,
			BackendAddress:  r.BackendAddress,
			RegisteredAt:    r.RegisteredAt,
			LastHeartbeatAt: r.LastHeartbeatAt,
			LeaseSeconds:    r.LeaseSeconds,
			Status:          domain.Status(r.Status),
		})
	}
	return out, nil
}

// Stats performs GET baseURL/v1/stats.
func (a *AdminClient) Stats(ctx context.Context) (domain.RegistryStats, error) {
	var stats domain.RegistryStats
	if err := a.getJSON(ctx, "/v1/stats", &stats); err != nil {
		return domain.RegistryStats{}, err
	}
	return stats, nil
}

// UnregisterInstance performs POST baseURL/v1/unregister/{instance_id}; instanceID is path-escaped.
//
// Returns: nil on 200 (also when the instance was already gone); error otherwise.
func (a *AdminClient) UnregisterInstance(ctx context.Context, instanceID string) error {
	reqURL := a.baseURL + "/v1/unregister/" + url.PathEscape(instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin unregister returned %d", resp.StatusCode)
	}
	return nil
}

func (a *AdminClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("admin %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

package handlers

import (
	"net/netip"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/domain"

	"github.com/stretchr/testify/assert"
)

func TestToRegistrationResponse(t *testing.T) {
	got := toRegistrationResponse(domain.Registration{
		InstanceID:        "inst-1",
		VirtualAddress:    netip.MustParseAddr("10.0.0.101"),
		VirtualPort:       9042,
		LeaseSeconds:      30,
		HeartbeatInterval: 2500 * time.Millisecond,
	})
	assert.Equal(t, RegistrationResponse{
		InstanceId:               "inst-1",
		VirtualIp:                "10.0.0.101",
		VirtualPort:              9042,
		LeaseSeconds:             30,
		HeartbeatIntervalSeconds: 2,
	}, got)
}

func TestToInstancesResponse(t *testing.T) {
	ts := time.Now()

	tests := []struct {
		name      string
		instances []domain.Instance
		wantLen   int
		wantFirst *InstanceInfo
	}{
		{
			name:      "nil",
			instances: nil,
			wantLen:   0,
		},
		{
			name:      "empty",
			instances: []domain.Instance{},
			wantLen:   0,
		},
		{
			name: "one",
			instances: []domain.Instance{{
				Name:            "svc-a",
				InstanceID:      "inst-1",
				VirtualAddress:  netip.MustParseAddr("10.0.0.100"),
				VirtualPort:     9000,
				BackendAddress:  "127.0.0.1:8080",
				RegisteredAt:    ts,
				LastHeartbeatAt: ts,
				LeaseSeconds:    86400,
				Status:          domain.StatusActive,
			}},
			wantLen: 1,
			wantFirst: &InstanceInfo{
				Name:            "svc-a",
				InstanceId:      "inst-1",
				VirtualIp:       "10.0.0.100",
				VirtualPort:     9000,
				BackendAddress:  "127.0.0.1:8080",
				RegisteredAt:    ts,
				LastHeartbeatAt: ts,
				LeaseSeconds:    86400,
				Status:          "active",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toInstancesResponse(tt.instances)
			assert.NotNil(t, got.Instances)
			assert.Len(t, got.Instances, tt.wantLen)
			if tt.wantFirst != nil && len(got.Instances) > 0 {
				assert.Equal(t, *tt.wantFirst, got.Instances[0])
			}
		})
	}
}

func TestToResolveResponse(t *testing.T) {
	instances := []domain.Instance{
		{Name: "svc-a", InstanceID: "a", VirtualAddress: netip.MustParseAddr("10.0.0.100"), VirtualPort: 9001},
		{Name: "svc-a", InstanceID: "b", VirtualAddress: netip.MustParseAddr("10.0.0.101"), VirtualPort: 9000},
	}
	got := toResolveResponse("svc-a", instances)
	assert.Equal(t, "svc-a", got.Name)
	assert.Equal(t, []string{"10.0.0.100:9001", "10.0.0.101:9000"}, got.Addresses)
	assert.Len(t, got.Instances, 2)

	empty := toResolveResponse("svc-z", nil)
	assert.NotNil(t, empty.Addresses)
	assert.Empty(t, empty.Addresses)
}

func TestToStatsResponse(t *testing.T) {
	got := toStatsResponse(domain.RegistryStats{Instances: 1, Services: 1, PoolSize: 10, PoolInUse: 1})
	assert.Equal(t, StatsResponse{Instances: 1, Services: 1, PoolSize: 10, PoolInUse: 1}, got)
}

package handlers

import (
	"github.com/jrtxreal/netsel/domain"
)

func toRegistrationResponse(r domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		InstanceId:               r.InstanceID,
		VirtualIp:                r.VirtualAddress.String(),
		VirtualPort:              int(r.VirtualPort),
		LeaseSeconds:             r.LeaseSeconds,
		HeartbeatIntervalSeconds: r.HeartbeatIntervalSeconds(),
	}
}

func toInstanceInfo(i domain.Instance) InstanceInfo {
	return InstanceInfo{
		Name:            i.Name,
		InstanceId:      i.InstanceID,
		VirtualIp:       i.VirtualAddress.String(),
		VirtualPort:     int(i.VirtualPort),
		BackendAddress:  i.BackendAddress,
		RegisteredAt:    i.RegisteredAt,
		LastHeartbeatAt: i.LastHeartbeatAt,
		LeaseSeconds:    i.LeaseSeconds,
		Status:          string(i.Status),
	}
}

// toInstancesResponse converts domain instances to API response.
func toInstancesResponse(instances []domain.Instance) InstancesResponse {
	out := make([]InstanceInfo, 0, len(instances))
	for _, i := range instances {
		out = append(out, toInstanceInfo(i))
	}
	return InstancesResponse{Instances: out}
}

// toResolveResponse lists the virtual ip:port of each instance in resolve order.
func toResolveResponse(name string, instances []domain.Instance) ResolveResponse {
	out := make([]string, 0, len(instances))
	for _, i := range instances {
		out = append(out, i.VirtualAddrPort().String())
	}
	return ResolveResponse{
		Name:      name,
		Addresses: out,
		Instances: toInstancesResponse(instances).Instances,
	}
}

func toStatsResponse(s domain.RegistryStats) StatsResponse {
	return StatsResponse{
		Instances: s.Instances,
		Services:  s.Services,
		PoolSize:  s.PoolSize,
		PoolInUse: s.PoolInUse,
	}
}

package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrtxreal/netsel/adapters"
)

const scenarioDeregisterIdempotent = "deregister_idempotent"

func init() {
	Register(scenarioDeregisterIdempotent, runDeregisterIdempotent)
}

// runDeregisterIdempotent checks that deregistration is acknowledged on every
// repeat, over the line protocol and the admin API, and that the admin view
// and heartbeats agree the instance is gone.
func runDeregisterIdempotent(ctx context.Context, cfg *Config) error {
	client, dispose := CreateRegistryClient(cfg)
	defer dispose()
	admin := CreateAdminClient(cfg)

	name := uniqueName("svc-d")
	reg, err := client.Register(ctx, name, backendRegistrationAddr(cfg, 8081), 30)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	if reg.LeaseSeconds != 30 {
		return fmt.Errorf("register: lease_seconds=%d, want 30", reg.LeaseSeconds)
	}

	listed, err := adminHasInstance(ctx, admin, reg.InstanceID)
	if err != nil {
		return err
	}
	if !listed {
		return fmt.Errorf("admin instances: %s missing after registration", reg.InstanceID)
	}

	for i := 0; i < 2; i++ {
		if err := client.Deregister(ctx, reg.InstanceID); err != nil {
			return fmt.Errorf("deregister #%d: %w", i+1, err)
		}
	}
	if err := admin.UnregisterInstance(ctx, reg.InstanceID); err != nil {
		return fmt.Errorf("admin unregister of a removed instance: %w", err)
	}

	listed, err = adminHasInstance(ctx, admin, reg.InstanceID)
	if err != nil {
		return err
	}
	if listed {
		return fmt.Errorf("admin instances: %s still listed after deregistration", reg.InstanceID)
	}
	if err := client.Heartbeat(ctx, reg.InstanceID); !errors.Is(err, adapters.ErrInstanceNotFound) {
		return fmt.Errorf("heartbeat after deregistration: got %v, want %v", err, adapters.ErrInstanceNotFound)
	}
	return nil
}

func adminHasInstance(ctx context.Context, admin *adapters.AdminClient, instanceID string) (bool, error) {
	instances, err := admin.GetInstances(ctx)
	if err != nil {
		return false, fmt.Errorf("admin instances: %w", err)
	}
	for _, inst := range instances {
		if inst.InstanceID == instanceID {
			return true, nil
		}
	}
	return false, nil
}

package scenario

import (
	"context"
	"fmt"
	"strings"
)

const scenarioTCPRoundRobin = "tcp_round_robin"

func init() {
	Register(scenarioTCPRoundRobin, runTCPRoundRobin)
}

// runTCPRoundRobin registers two backends under one name and opens ten
// connections through the name-hint TCP proxy: each backend must serve exactly
// five. After both are deregistered the proxy must answer with an ERROR line.
func runTCPRoundRobin(ctx context.Context, cfg *Config) error {
	const connections = 10

	client, dispose := CreateRegistryClient(cfg)
	defer dispose()

	name := uniqueName("svc-b")
	tags := []string{"b1", "b2"}
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		backend, err := startTCPBackend(cfg, tag)
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

	counts := make(map[string]int)
	for i := 0; i < connections; i++ {
		line, err := dialByName(ctx, cfg.TCPProxyAddr, name)
		if err != nil {
			return fmt.Errorf("connection %d: %w", i+1, err)
		}
		counts[line]++
	}
	for _, tag := range tags {
		if counts[tag] != connections/len(tags) {
			return fmt.Errorf("round robin: backend %s served %d of %d connections (all: %v)", tag, counts[tag], connections, counts)
		}
	}

	for _, id := range ids {
		if err := client.Deregister(ctx, id); err != nil {
			return fmt.Errorf("deregister %s: %w", id, err)
		}
	}
	line, err := dialByName(ctx, cfg.TCPProxyAddr, name)
	if err != nil {
		return fmt.Errorf("connection after deregistration: %w", err)
	}
	if !strings.HasPrefix(line, "ERROR|") {
		return fmt.Errorf("connection after deregistration: got %q, want an ERROR line", line)
	}
	return nil
}

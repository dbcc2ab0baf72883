package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrtxreal/netsel/scenario"
)

const (
	defaultRegistryAddr  = "localhost:9000"
	defaultAdminURL      = "http://localhost:8082"
	defaultTCPProxyAddr  = "localhost:8080"
	defaultHTTPProxyAddr = "localhost:8081"
	defaultBackendHost   = "127.0.0.1"
)

func main() {
	list := flag.Bool("list", false, "list available scenarios and exit")
	all := flag.Bool("all", false, "run every scenario")
	scenarioName := flag.String("scenario", "", "scenario to run (or pass as positional arg)")
	registry := flag.String("registry", "", "registration listener (default: localhost:9000 or REGISTRY_ADDR env)")
	admin := flag.String("admin", "", "admin API base URL (default: http://localhost:8082 or ADMIN_URL env)")
	tcpProxy := flag.String("tcp-proxy", "", "name-hint TCP proxy (default: localhost:8080 or TCP_PROXY_ADDR env)")
	httpProxy := flag.String("http-proxy", "", "HTTP proxy (default: localhost:8081 or HTTP_PROXY_ADDR env)")
	backendHost := flag.String("backend-host", "", "address scenario backends listen on (default: 127.0.0.1 or BACKEND_HOST env)")
	maxAge := flag.Duration("max-heartbeat-age", 60*time.Second, "deployment's max heartbeat age")
	checkInterval := flag.Duration("health-check-interval", 30*time.Second, "deployment's health check interval")
	heartbeat := flag.Duration("heartbeat-interval", 10*time.Second, "heartbeat interval used by scenarios")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	if *list {
		for _, name := range scenario.Names() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	cfg := &scenario.Config{
		RegistryAddr:        orEnv(*registry, "REGISTRY_ADDR", defaultRegistryAddr),
		AdminURL:            orEnv(*admin, "ADMIN_URL", defaultAdminURL),
		TCPProxyAddr:        orEnv(*tcpProxy, "TCP_PROXY_ADDR", defaultTCPProxyAddr),
		HTTPProxyAddr:       orEnv(*httpProxy, "HTTP_PROXY_ADDR", defaultHTTPProxyAddr),
		BackendHost:         orEnv(*backendHost, "BACKEND_HOST", defaultBackendHost),
		MaxHeartbeatAge:     *maxAge,
		HealthCheckInterval: *checkInterval,
		HeartbeatInterval:   *heartbeat,
	}

	var names []string
	switch {
	case *all:
		names = scenario.Names()
	case *scenarioName != "":
		names = []string{*scenarioName}
	case len(flag.Args()) > 0:
		names = flag.Args()
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: netsel-scenarios [--list] [--all] [--scenario=NAME] [--registry=ADDR] [--admin=URL] [--tcp-proxy=ADDR] [--http-proxy=ADDR] [scenario_name...]")
		fmt.Fprintln(os.Stderr, "  use --list to list scenarios")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	exitCode := 0
	for _, name := range names {
		start := time.Now()
		err := scenario.Run(ctx, name, cfg)

		fmt.Println("\n=== Scenario Result ===")
		fmt.Printf("Scenario: %s\n", name)
		fmt.Printf("Duration: %s\n", time.Since(start).Round(time.Millisecond))
		if err != nil {
			fmt.Printf("Status: FAILED\n")
			fmt.Printf("Error: %v\n", err)
			var unknown *scenario.UnknownScenarioError
			if errors.As(err, &unknown) {
				fmt.Fprintf(os.Stderr, "\navailable scenarios: %s\n", strings.Join(scenario.Names(), ", "))
				exitCode = 2
			} else if exitCode == 0 {
				exitCode = 1
			}
		} else {
			fmt.Printf("Status: PASSED\n")
		}
		fmt.Println("=====================")
	}
	cancel()
	os.Exit(exitCode)
}

func orEnv(flagValue, env, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

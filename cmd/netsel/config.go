package main

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jrtxreal/netsel/adapters/myredis"
	"github.com/jrtxreal/netsel/domain"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envRegistryAddr        = "REGISTRY_ADDR"
	envAdminHTTPAddr       = "ADMIN_HTTP_ADDR"
	envGRPCHealthAddr      = "GRPC_HEALTH_ADDR"
	envRedisAddr           = "REDIS_ADDR"
	envConfigPath          = "CONFIG_PATH"
	envHealthCheckInterval = "HEALTH_CHECK_INTERVAL_S"
	envMaxHeartbeatAge     = "MAX_HEARTBEAT_AGE_S"
	envHeartbeatInterval   = "HEARTBEAT_INTERVAL_S"
	envDefaultLease        = "DEFAULT_LEASE_S"
	envRequestTimeoutMs    = "REQUEST_TIMEOUT_MS"
	envRegistrationRate    = "REGISTRATION_RATE"
	envRegistrationBurst   = "REGISTRATION_BURST"
)

const (
	defaultRegistryAddr      = ":9000"
	defaultAdminHTTPAddr     = ":8082"
	defaultTCPProxyAddr      = ":8080"
	defaultHTTPProxyAddr     = ":8081"
	defaultRegistrationRate  = 100
	defaultRegistrationBurst = 200
)

// Config holds the full daemon configuration loaded by LoadConfig from environment variables
// and the optional YAML file at CONFIG_PATH. Empty GRPCHealthAddr or Redis.Addr disables that observer.
type Config struct {
	RegistryAddr   string
	AdminHTTPAddr  string
	GRPCHealthAddr string
	Redis          myredis.RedisConfig

	Pool       domain.PoolConfig
	TCPProxies []domain.TCPRoute
	HTTPProxy  domain.HTTPProxyConfig

	HealthCheckInterval time.Duration
	MaxHeartbeatAge     time.Duration
	HeartbeatInterval   time.Duration
	DefaultLeaseSeconds int
	RequestTimeout      time.Duration
	RegistrationRate    float64
	RegistrationBurst   int
}

// yamlConfig is the root struct for YAML unmarshalling.
type yamlConfig struct {
	Pool       *yamlPool      `yaml:"pool"`
	TCPProxies []yamlTCPProxy `yaml:"tcp_proxies"`
	HTTPProxy  *yamlHTTPProxy `yaml:"http_proxy"`
}

type yamlPool struct {
	IPStart   string `yaml:"ip_start"`
	IPCount   int    `yaml:"ip_count"`
	PortStart int    `yaml:"port_start"`
	PortEnd   int    `yaml:"port_end"`
}

// yamlTCPProxy is one TCP listener; an empty service selects the name-hint protocol.
type yamlTCPProxy struct {
	Listen  string `yaml:"listen"`
	Service string `yaml:"service"`
}

type yamlHTTPProxy struct {
	Listen       string          `yaml:"listen"`
	DomainSuffix string          `yaml:"domain_suffix"`
	Routes       []yamlHTTPRoute `yaml:"routes"`
}

type yamlHTTPRoute struct {
	Host        string `yaml:"host"`
	PathPrefix  string `yaml:"path_prefix"`
	Service     string `yaml:"service"`
	StripPrefix bool   `yaml:"strip_prefix"`
}

func loadYAMLConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out yamlConfig
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadConfig builds the daemon config from environment variables and the YAML file at CONFIG_PATH.
//
// Every variable is optional and falls back to its default. Without CONFIG_PATH the pool is
// 10.0.0.100 x 9000-9999, one name-hint TCP proxy listens on :8080 and the HTTP proxy on :8081.
//
// Returns: (*Config, nil) on success; (nil, error) naming the offending variable or YAML field on
// a malformed number, a non-positive duration, HEARTBEAT_INTERVAL_S not below MAX_HEARTBEAT_AGE_S,
// a YAML read/parse error, an invalid pool or an invalid proxy route.
//
// Called only from main at startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RegistryAddr:   envOr(envRegistryAddr, defaultRegistryAddr),
		AdminHTTPAddr:  envOr(envAdminHTTPAddr, defaultAdminHTTPAddr),
		GRPCHealthAddr: strings.TrimSpace(os.Getenv(envGRPCHealthAddr)),
		Redis:          myredis.RedisConfig{Addr: strings.TrimSpace(os.Getenv(envRedisAddr))},
		Pool:           domain.DefaultPoolConfig(),
		TCPProxies:     []domain.TCPRoute{{Listen: defaultTCPProxyAddr}},
		HTTPProxy:      domain.HTTPProxyConfig{Listen: defaultHTTPProxyAddr},
	}

	var err error
	if cfg.HealthCheckInterval, err = positiveSeconds(envHealthCheckInterval, 30); err != nil {
		return nil, err
	}
	if cfg.MaxHeartbeatAge, err = positiveSeconds(envMaxHeartbeatAge, 60); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = positiveSeconds(envHeartbeatInterval, 10); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval >= cfg.MaxHeartbeatAge {
		return nil, fmt.Errorf("%s (%s) must be less than %s (%s)",
			envHeartbeatInterval, cfg.HeartbeatInterval, envMaxHeartbeatAge, cfg.MaxHeartbeatAge)
	}
	if cfg.DefaultLeaseSeconds, err = positiveInt(envDefaultLease, 86400); err != nil {
		return nil, err
	}
	timeoutMs, err := positiveInt(envRequestTimeoutMs, 5000)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = time.Duration(timeoutMs) * time.Millisecond
	if cfg.RegistrationBurst, err = positiveInt(envRegistrationBurst, defaultRegistrationBurst); err != nil {
		return nil, err
	}
	cfg.RegistrationRate = defaultRegistrationRate
	if v := strings.TrimSpace(os.Getenv(envRegistrationRate)); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("%s must be a positive number, got %q", envRegistrationRate, v)
		}
		cfg.RegistrationRate = rate
	}

	if configPath := strings.TrimSpace(os.Getenv(envConfigPath)); configPath != "" {
		if !filepath.IsAbs(configPath) {
			abs, absErr := filepath.Abs(configPath)
			if absErr != nil {
				return nil, absErr
			}
			configPath = abs
		}
		raw, err := loadYAMLConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if err := applyYAML(cfg, raw); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	if err := domain.ValidatePoolConfig(cfg.Pool); err != nil {
		return nil, err
	}
	if err := domain.ValidateTCPRoutes(cfg.TCPProxies); err != nil {
		return nil, err
	}
	if err := domain.ValidateHTTPProxyConfig(cfg.HTTPProxy); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyYAML overrides the sections present in raw. An absent or empty tcp_proxies keeps the default listener.
func applyYAML(cfg *Config, raw *yamlConfig) error {
	if raw.Pool != nil {
		pool, err := poolFromYAML(*raw.Pool)
		if err != nil {
			return err
		}
		cfg.Pool = pool
	}
	if len(raw.TCPProxies) > 0 {
		routes := make([]domain.TCPRoute, 0, len(raw.TCPProxies))
		for _, p := range raw.TCPProxies {
			routes = append(routes, domain.TCPRoute{
				Listen:  strings.TrimSpace(p.Listen),
				Service: strings.TrimSpace(p.Service),
			})
		}
		cfg.TCPProxies = routes
	}
	if raw.HTTPProxy != nil {
		listen := strings.TrimSpace(raw.HTTPProxy.Listen)
		if listen == "" {
			listen = defaultHTTPProxyAddr
		}
		routes := make([]domain.HTTPRoute, 0, len(raw.HTTPProxy.Routes))
		for _, r := range raw.HTTPProxy.Routes {
			routes = append(routes, domain.HTTPRoute{
				Host:        strings.ToLower(strings.TrimSpace(r.Host)),
				PathPrefix:  strings.TrimSpace(r.PathPrefix),
				Service:     strings.TrimSpace(r.Service),
				StripPrefix: r.StripPrefix,
			})
		}
		cfg.HTTPProxy = domain.HTTPProxyConfig{
			Listen:       listen,
			DomainSuffix: strings.TrimSpace(raw.HTTPProxy.DomainSuffix),
			Routes:       routes,
		}
	}
	return nil
}

func poolFromYAML(p yamlPool) (domain.PoolConfig, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(p.IPStart))
	if err != nil {
		return domain.PoolConfig{}, fmt.Errorf("pool.ip_start: %w", err)
	}
	if p.PortStart < 1 || p.PortStart > 65535 {
		return domain.PoolConfig{}, fmt.Errorf("pool.port_start must be 1-65535, got %d", p.PortStart)
	}
	if p.PortEnd < 1 || p.PortEnd > 65535 {
		return domain.PoolConfig{}, fmt.Errorf("pool.port_end must be 1-65535, got %d", p.PortEnd)
	}
	count := p.IPCount
	if count == 0 {
		count = 1
	}
	return domain.PoolConfig{
		IPStart:   ip,
		IPCount:   count,
		PortStart: uint16(p.PortStart),
		PortEnd:   uint16(p.PortEnd),
	}, nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func positiveInt(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return n, nil
}

func positiveSeconds(name string, def int) (time.Duration, error) {
	n, err := positiveInt(name, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

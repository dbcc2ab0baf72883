package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jrtxreal/netsel/adapters"
	"github.com/jrtxreal/netsel/adapters/myredis"
	"github.com/jrtxreal/netsel/api"
	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/handlers"
	"github.com/jrtxreal/netsel/interfaces"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

func main() {
	// Initialize logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting netsel")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"registry_addr", config.RegistryAddr,
		"admin_http_addr", config.AdminHTTPAddr,
		"grpc_health_addr", config.GRPCHealthAddr,
		"redis_addr", config.Redis.Addr,
		"pool_size", config.Pool.Size(),
		"tcp_proxies", len(config.TCPProxies),
		"http_proxy_addr", config.HTTPProxy.Listen,
		"max_heartbeat_age", config.MaxHeartbeatAge,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Observers
	var observers []interfaces.InstanceObserver
	var publisher *adapters.HealthPublisher
	{
		if config.Redis.Addr != "" {
			redisClient, err := myredis.NewRedisUniversalClient(config.Redis.Addr)
			if err != nil {
				level.Error(logger).Log("msg", "Failed to create Redis client", "err", err)
				os.Exit(1)
			}
			defer redisClient.Close()

			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = redisClient.Ping(pingCtx).Err()
			pingCancel()
			if err != nil {
				level.Error(logger).Log("msg", "Failed to connect to Redis", "err", err)
				os.Exit(1)
			}
			level.Info(logger).Log("msg", "Connected to Redis")

			cache := myredis.NewCache[domain.Instance](redisClient, adapters.MirrorKeyPrefix, adapters.MarshalInstance, adapters.UnmarshalInstance)
			observers = append(observers, adapters.NewRedisMirror(cache, config.MaxHeartbeatAge, logger))
		}
		if config.GRPCHealthAddr != "" {
			publisher = adapters.NewHealthPublisher(logger)
			observers = append(observers, publisher)
		}
	}

	// Registry core
	var store *service.RegistryStore
	var sweeper *service.Sweeper
	{
		allocator, err := service.NewAllocator(config.Pool)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create address allocator", "err", err)
			os.Exit(1)
		}
		clock := service.NewTimeProvider(time.Now)
		store = service.NewRegistryStore(allocator, clock, service.RegistryConfig{
			DefaultLeaseSeconds: config.DefaultLeaseSeconds,
			HeartbeatInterval:   config.HeartbeatInterval,
		}, logger, observers...)
		sweeper = service.NewSweeper(store, clock, config.HealthCheckInterval, config.MaxHeartbeatAge, logger)
	}

	// Registration line protocol
	var registration *handlers.RegistrationServer
	{
		registration = handlers.NewRegistrationServer(store, handlers.RegistrationConfig{
			RequestTimeout: config.RequestTimeout,
			IdleTimeout:    config.MaxHeartbeatAge,
			Rate:           config.RegistrationRate,
			Burst:          config.RegistrationBurst,
		}, logger)
	}

	// Admin HTTP API (Echo)
	var admin *echo.Echo
	{
		validator, err := handlers.NewRequestValidator(api.OpenAPI)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to load OpenAPI document", "err", err)
			os.Exit(1)
		}
		admin = echo.New()
		admin.HideBanner = true
		admin.HidePort = true
		admin.Server.ReadHeaderTimeout = config.RequestTimeout
		admin.Server.ReadTimeout = config.RequestTimeout
		admin.Server.WriteTimeout = config.RequestTimeout
		service.RegisterErrorHandler(admin, logger)
		admin.Use(validator)
		handlers.RegisterHandlers(admin, handlers.NewHTTPServer(store, logger))
	}

	// Proxies share one round-robin cursor per service name
	selector := service.NewSelector()

	var tcpProxies []*service.TCPProxy
	{
		dialer := &net.Dialer{Timeout: config.RequestTimeout, KeepAlive: 30 * time.Second}
		for _, route := range config.TCPProxies {
			tcpProxies = append(tcpProxies, service.NewTCPProxy(route, store, selector, dialer, service.TCPProxyConfig{
				DialTimeout: config.RequestTimeout,
				HintTimeout: config.RequestTimeout,
			}, logger))
		}
	}

	var backendPool interfaces.BackendPool
	var proxy *echo.Echo
	{
		backendPool = service.NewBackendPool(store, service.NewTransportFactory(config.RequestTimeout, config.RequestTimeout), service.DefaultPoolRefreshInterval, logger)
		httpProxy, err := service.NewHTTPProxy(config.HTTPProxy, store, selector, backendPool, logger)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create HTTP proxy", "err", err)
			os.Exit(1)
		}
		proxy = echo.New()
		proxy.HideBanner = true
		proxy.HidePort = true
		proxy.Server.ReadHeaderTimeout = config.RequestTimeout
		proxy.Server.IdleTimeout = 90 * time.Second
		service.RegisterErrorHandler(proxy, logger)
		httpProxy.Register(proxy)
	}

	// A listener that fails stops the whole process
	failed := make(chan error, 5+len(tcpProxies))
	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("msg", "Server error", "server", name, "err", err)
				failed <- err
			}
		}()
	}

	run("sweeper", func() error {
		sweeper.Run(ctx)
		return nil
	})
	run("registration", func() error {
		level.Info(logger).Log("msg", "Starting registration server", "addr", config.RegistryAddr)
		return registration.ListenAndServe(ctx, config.RegistryAddr)
	})
	run("admin", func() error {
		level.Info(logger).Log("msg", "Starting admin HTTP server", "addr", config.AdminHTTPAddr)
		return admin.Start(config.AdminHTTPAddr)
	})
	run("http_proxy", func() error {
		level.Info(logger).Log("msg", "Starting HTTP proxy", "addr", config.HTTPProxy.Listen)
		return proxy.Start(config.HTTPProxy.Listen)
	})
	for _, p := range tcpProxies {
		run("tcp_proxy", func() error { return p.ListenAndServe(ctx) })
	}
	if publisher != nil {
		run("grpc_health", func() error {
			lis, err := net.Listen("tcp", config.GRPCHealthAddr)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "Starting gRPC health server", "addr", config.GRPCHealthAddr)
			return publisher.Serve(ctx, lis)
		})
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
		level.Info(logger).Log("msg", "Shutting down...")
	case <-failed:
		exitCode = 1
		level.Info(logger).Log("msg", "Shutting down after server failure")
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	if err := registration.Close(); err != nil {
		level.Error(logger).Log("msg", "Error closing registration server", "err", err)
	}
	for _, p := range tcpProxies {
		if err := p.Close(); err != nil {
			level.Error(logger).Log("msg", "Error closing TCP proxy", "err", err)
		}
	}
	if err := proxy.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during HTTP proxy shutdown", "err", err)
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during admin server shutdown", "err", err)
	}
	if err := backendPool.Close(); err != nil {
		level.Error(logger).Log("msg", "Error closing backend pool", "err", err)
	}
	wg.Wait()

	level.Info(logger).Log("msg", "Server stopped")
	if exitCode != 0 {
		shutdownCancel()
		os.Exit(exitCode)
	}
}

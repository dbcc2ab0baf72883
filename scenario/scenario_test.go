package scenario

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/api"
	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/handlers"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDeployment wires a complete registry in-process with a compressed time base.
func startDeployment(t *testing.T) *Config {
	t.Helper()
	logger := log.NewNopLogger()
	ctx, cancel := context.WithCancel(context.Background())

	const (
		maxAge   = 300 * time.Millisecond
		interval = 50 * time.Millisecond
	)

	alloc, err := service.NewAllocator(domain.DefaultPoolConfig())
	require.NoError(t, err)
	clock := service.NewTimeProvider(time.Now)
	store := service.NewRegistryStore(alloc, clock, service.DefaultRegistryConfig(), logger)

	sweeper := service.NewSweeper(store, clock, interval, maxAge, logger)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-sweepDone
	})

	registration := handlers.NewRegistrationServer(store, handlers.RegistrationConfig{}, logger)
	regLis := listen(t)
	go func() { _ = registration.Serve(ctx, regLis) }()
	t.Cleanup(func() { _ = registration.Close() })

	tcpProxy := service.NewTCPProxy(domain.TCPRoute{Listen: "127.0.0.1:0"}, store, service.NewSelector(), &net.Dialer{}, service.TCPProxyConfig{}, logger)
	tcpLis := listen(t)
	go func() { _ = tcpProxy.Serve(ctx, tcpLis) }()
	t.Cleanup(func() { _ = tcpProxy.Close() })

	pool := service.NewBackendPool(store, service.NewTransportFactory(time.Second, 5*time.Second), time.Second, logger)
	t.Cleanup(func() { _ = pool.Close() })
	httpProxy, err := service.NewHTTPProxy(domain.HTTPProxyConfig{}, store, service.NewSelector(), pool, logger)
	require.NoError(t, err)
	proxyEcho := echo.New()
	service.RegisterErrorHandler(proxyEcho, logger)
	httpProxy.Register(proxyEcho)
	proxySrv := httptest.NewServer(proxyEcho)
	t.Cleanup(proxySrv.Close)

	adminEcho := echo.New()
	service.RegisterErrorHandler(adminEcho, logger)
	validator, err := handlers.NewRequestValidator(api.OpenAPI)
	require.NoError(t, err)
	adminEcho.Use(validator)
	handlers.RegisterHandlers(adminEcho, handlers.NewHTTPServer(store, logger))
	adminSrv := httptest.NewServer(adminEcho)
	t.Cleanup(adminSrv.Close)

	return &Config{
		RegistryAddr:        regLis.Addr().String(),
		AdminURL:            adminSrv.URL,
		TCPProxyAddr:        tcpLis.Addr().String(),
		HTTPProxyAddr:       strings.TrimPrefix(proxySrv.URL, "http://"),
		BackendHost:         "127.0.0.1",
		MaxHeartbeatAge:     maxAge,
		HealthCheckInterval: interval,
		HeartbeatInterval:   interval,
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

func TestScenarios(t *testing.T) {
	cfg := startDeployment(t)

	names := Names()
	require.ElementsMatch(t, []string{
		scenarioRegisterHeartbeatEvict,
		scenarioTCPRoundRobin,
		scenarioHTTPHostRouting,
		scenarioDeregisterIdempotent,
	}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			assert.NoError(t, Run(ctx, name, cfg))
		})
	}
}

func TestRun_UnknownScenario(t *testing.T) {
	err := Run(context.Background(), "nope", &Config{})
	var unknown *UnknownScenarioError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
	assert.Equal(t, "unknown scenario: nope", err.Error())
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := waitFor(ctx, time.Second, time.Millisecond, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = waitFor(ctx, 20*time.Millisecond, 5*time.Millisecond, func() (bool, error) { return false, nil })
	assert.ErrorIs(t, err, errConditionTimeout)

	err = waitFor(ctx, time.Second, time.Millisecond, func() (bool, error) { return false, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}

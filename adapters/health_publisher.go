package adapters

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthPublisher exposes per-service liveness over the standard gRPC health
// protocol. A service name is SERVING while it has at least one active
// instance and NOT_SERVING once its last instance is gone; names never seen
// are unknown to the health server. The overall "" service is SERVING until
// shutdown.
type HealthPublisher struct {
	server *health.Server
	logger log.Logger

	mu     sync.Mutex
	counts map[string]int
}

var _ interfaces.InstanceObserver = (*HealthPublisher)(nil)

// NewHealthPublisher creates the publisher with the overall status set to SERVING.
func NewHealthPublisher(logger log.Logger) *HealthPublisher {
	p := &HealthPublisher{
		server: health.NewServer(),
		logger: log.With(helpers.NilPanic(logger, "adapters.health_publisher.go: logger is required"), "component", "HealthPublisher"),
		counts: make(map[string]int),
	}
	p.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return p
}

// HealthServer returns the gRPC health service backed by the publisher.
func (p *HealthPublisher) HealthServer() grpc_health_v1.HealthServer {
	return p.server
}

func (p *HealthPublisher) InstanceRegistered(_ context.Context, inst domain.Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[inst.Name]++
	p.publishLocked(inst.Name)
}

// InstanceRefreshed changes nothing: a heartbeat never alters the set of live instances.
func (p *HealthPublisher) InstanceRefreshed(context.Context, domain.Instance) {}

func (p *HealthPublisher) InstanceRemoved(_ context.Context, inst domain.Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[inst.Name]--
	p.publishLocked(inst.Name)
}

// publishLocked sets the status of name from its live count. Observer calls for
// different instances may arrive out of order, so the count can dip below zero
// briefly; it is only compared against zero.
func (p *HealthPublisher) publishLocked(name string) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if p.counts[name] > 0 {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	if p.counts[name] == 0 {
		delete(p.counts, name)
	}
	p.server.SetServingStatus(name, status)
	level.Debug(p.logger).Log("msg", "health status", "name", name, "status", status)
}

// Serve runs a gRPC server with the health service on lis until ctx is done,
// then marks every service NOT_SERVING and stops gracefully.
func (p *HealthPublisher) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, p.server)

	stop := context.AfterFunc(ctx, func() {
		p.server.Shutdown()
		grpcServer.GracefulStop()
	})
	defer stop()

	level.Info(p.logger).Log("msg", "gRPC health listening", "addr", lis.Addr())
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc health serve: %w", err)
	}
	return nil
}

// Package handlers contains the front-ends of the registry: the admin HTTP
// API and the registration line protocol server.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/helpers"
	"github.com/jrtxreal/netsel/interfaces"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// HTTPServer implements ServerInterface on top of the registry.
type HTTPServer struct {
	registry interfaces.Registry
	logger   log.Logger
}

// NewHTTPServer creates a new HTTPServer.
func NewHTTPServer(registry interfaces.Registry, logger log.Logger) *HTTPServer {
	logger = log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer")
	return &HTTPServer{
		registry: helpers.NilPanic(registry, "handlers.http.go: registry is required"),
		logger:   logger,
	}
}

// RegisterInstance (POST /v1/register) allocates a virtual slot. Returns 200 with the
// registration, 400 on validation error, 507 when the pool is exhausted.
func (h *HTTPServer) RegisterInstance(ectx echo.Context) error {
	var req RegisterRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}

	args, err := fromRegisterRequest(req)
	if err != nil {
		return fmt.Errorf("registerInstance failed to convert request, err: %w", err)
	}

	ctx := ectx.Request().Context()
	reg, err := h.registry.Register(ctx, args.name, args.backend, args.leaseSeconds)
	if err != nil {
		return fmt.Errorf("registerInstance failed to register %s, err: %w", args.name, err)
	}

	return ectx.JSON(http.StatusOK, toRegistrationResponse(reg))
}

// HeartbeatInstance (POST /v1/heartbeat/{instance_id}) refreshes an instance. Returns 404 for unknown ids.
func (h *HTTPServer) HeartbeatInstance(ectx echo.Context, instanceId string) error {
	inst, err := h.registry.Heartbeat(ectx.Request().Context(), instanceId)
	if err != nil {
		return fmt.Errorf("heartbeatInstance failed, err: %w", err)
	}
	return ectx.JSON(http.StatusOK, toInstanceInfo(inst))
}

// UnregisterInstance (POST /v1/unregister/{instance_id}) removes an instance.
// An id that is already gone is acknowledged the same way.
func (h *HTTPServer) UnregisterInstance(ectx echo.Context, instanceId string) error {
	if _, err := h.registry.Deregister(ectx.Request().Context(), instanceId); err != nil {
		if !service.IsEntityNotFoundError(err) {
			return fmt.Errorf("unregisterInstance failed, err: %w", err)
		}
		level.Debug(h.logger).Log("msg", "unregister of unknown instance", "instance_id", instanceId)
	}
	return ectx.NoContent(http.StatusOK)
}

// GetInstances (GET /v1/instances) returns every active instance.
func (h *HTTPServer) GetInstances(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, toInstancesResponse(h.registry.AllActive(ectx.Request().Context())))
}

// ResolveService (GET /v1/resolve/{name}) returns the active instances of name;
// an unknown name yields empty lists, not 404.
func (h *HTTPServer) ResolveService(ectx echo.Context, name string) error {
	if err := domain.ValidateServiceName(name); err != nil {
		return service.NewBadParameterError("invalid service name", err)
	}
	return ectx.JSON(http.StatusOK, toResolveResponse(name, h.registry.Resolve(ectx.Request().Context(), name)))
}

// GetStats (GET /v1/stats) returns registry counters.
func (h *HTTPServer) GetStats(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, toStatsResponse(h.registry.Stats(ectx.Request().Context())))
}

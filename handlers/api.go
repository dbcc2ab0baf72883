package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// RegisterRequest is the body of POST /v1/register.
type RegisterRequest struct {
	Name           string `json:"name"`
	BackendAddress string `json:"backend_address"`
	LeaseSeconds   *int   `json:"lease_seconds,omitempty"`
}

// RegistrationResponse is returned by POST /v1/register.
type RegistrationResponse struct {
	InstanceId               string `json:"instance_id"`
	VirtualIp                string `json:"virtual_ip"`
	VirtualPort              int    `json:"virtual_port"`
	LeaseSeconds             int    `json:"lease_seconds"`
	HeartbeatIntervalSeconds int    `json:"heartbeat_interval_seconds"`
}

// InstanceInfo describes one registered instance.
type InstanceInfo struct {
	Name            string    `json:"name"`
	InstanceId      string    `json:"instance_id"`
	VirtualIp       string    `json:"virtual_ip"`
	VirtualPort     int       `json:"virtual_port"`
	BackendAddress  string    `json:"backend_address"`
	RegisteredAt    time.Time `json:"registered_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
	LeaseSeconds    int       `json:"lease_seconds"`
	Status          string    `json:"status"`
}

// InstancesResponse is returned by GET /v1/instances.
type InstancesResponse struct {
	Instances []InstanceInfo `json:"instances"`
}

// ResolveResponse is returned by GET /v1/resolve/{name}.
type ResolveResponse struct {
	Name      string         `json:"name"`
	Addresses []string       `json:"addresses"`
	Instances []InstanceInfo `json:"instances"`
}

// StatsResponse is returned by GET /v1/stats.
type StatsResponse struct {
	Instances int `json:"instances"`
	Services  int `json:"services"`
	PoolSize  int `json:"pool_size"`
	PoolInUse int `json:"pool_in_use"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /v1/register)
	RegisterInstance(ctx echo.Context) error
	// (POST /v1/heartbeat/{instance_id})
	HeartbeatInstance(ctx echo.Context, instanceId string) error
	// (POST /v1/unregister/{instance_id})
	UnregisterInstance(ctx echo.Context, instanceId string) error
	// (GET /v1/instances)
	GetInstances(ctx echo.Context) error
	// (GET /v1/resolve/{name})
	ResolveService(ctx echo.Context, name string) error
	// (GET /v1/stats)
	GetStats(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) RegisterInstance(ctx echo.Context) error {
	return w.Handler.RegisterInstance(ctx)
}

func (w *ServerInterfaceWrapper) HeartbeatInstance(ctx echo.Context) error {
	var instanceId string
	if err := bindPathParam(ctx, "instance_id", &instanceId); err != nil {
		return err
	}
	return w.Handler.HeartbeatInstance(ctx, instanceId)
}

func (w *ServerInterfaceWrapper) UnregisterInstance(ctx echo.Context) error {
	var instanceId string
	if err := bindPathParam(ctx, "instance_id", &instanceId); err != nil {
		return err
	}
	return w.Handler.UnregisterInstance(ctx, instanceId)
}

func (w *ServerInterfaceWrapper) GetInstances(ctx echo.Context) error {
	return w.Handler.GetInstances(ctx)
}

func (w *ServerInterfaceWrapper) ResolveService(ctx echo.Context) error {
	var name string
	if err := bindPathParam(ctx, "name", &name); err != nil {
		return err
	}
	return w.Handler.ResolveService(ctx, name)
}

func (w *ServerInterfaceWrapper) GetStats(ctx echo.Context) error {
	return w.Handler.GetStats(ctx)
}

func bindPathParam(ctx echo.Context, name string, dest *string) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return nil
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.POST("/v1/register", wrapper.RegisterInstance)
	router.POST("/v1/heartbeat/:instance_id", wrapper.HeartbeatInstance)
	router.POST("/v1/unregister/:instance_id", wrapper.UnregisterInstance)
	router.GET("/v1/instances", wrapper.GetInstances)
	router.GET("/v1/resolve/:name", wrapper.ResolveService)
	router.GET("/v1/stats", wrapper.GetStats)
}

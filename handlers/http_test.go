package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/jrtxreal/netsel/api"
	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/interfaces/mock"
	"github.com/jrtxreal/netsel/service"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerHandlers(t *testing.T, e *echo.Echo, server ServerInterface) {
	t.Helper()
	validator, err := NewRequestValidator(api.OpenAPI)
	require.NoError(t, err)
	e.Use(validator)
	RegisterHandlers(e, server)
	service.RegisterErrorHandler(e, log.NewNopLogger())
}

func serve(t *testing.T, registry *mock.RegistryMock, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	registerHandlers(t, e, NewHTTPServer(registry, log.NewNopLogger()))
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var body errBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body
}

var testInstance = domain.Instance{
	Name:            "svc-a",
	InstanceID:      "inst-1",
	VirtualAddress:  netip.MustParseAddr("10.0.0.100"),
	VirtualPort:     9000,
	BackendAddress:  "127.0.0.1:8080",
	RegisteredAt:    time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC),
	LastHeartbeatAt: time.Date(2026, 2, 19, 12, 0, 5, 0, time.UTC),
	LeaseSeconds:    86400,
	Status:          domain.StatusActive,
}

func TestNewHTTPServer_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "handlers.http.go: logger is required", func() {
		NewHTTPServer(&mock.RegistryMock{}, nil)
	})
	assert.PanicsWithValue(t, "handlers.http.go: registry is required", func() {
		NewHTTPServer(nil, log.NewNopLogger())
	})
}

func TestHTTPServer_RegisterInstance(t *testing.T) {
	okRegister := func(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error) {
		return domain.Registration{
			InstanceID:        "inst-1",
			VirtualAddress:    netip.MustParseAddr("10.0.0.100"),
			VirtualPort:       9000,
			LeaseSeconds:      86400,
			HeartbeatInterval: 10 * time.Second,
		}, nil
	}

	tests := []struct {
		name           string
		body           string
		register       func(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error)
		expectedStatus int
		expectedCode   string
		expectedCalls  int
	}{
		{
			name:           "ok",
			body:           `{"name":"svc-a","backend_address":"127.0.0.1:8080"}`,
			register:       okRegister,
			expectedStatus: http.StatusOK,
			expectedCalls:  1,
		},
		{
			name:           "ok with lease",
			body:           `{"name":"svc-a","backend_address":"127.0.0.1:8080","lease_seconds":30}`,
			register:       okRegister,
			expectedStatus: http.StatusOK,
			expectedCalls:  1,
		},
		{
			name:           "400 invalid JSON",
			body:           `{invalid`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
		},
		{
			name:           "400 missing name",
			body:           `{"backend_address":"127.0.0.1:8080"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
		},
		{
			name:           "400 unknown field",
			body:           `{"name":"svc-a","backend_address":"127.0.0.1:8080","weight":3}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
		},
		{
			name:           "400 negative lease",
			body:           `{"name":"svc-a","backend_address":"127.0.0.1:8080","lease_seconds":-1}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
		},
		{
			name:           "400 name with space",
			body:           `{"name":"svc a","backend_address":"127.0.0.1:8080"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
		},
		{
			name: "400 registry rejects backend",
			body: `{"name":"svc-a","backend_address":"nohostport"}`,
			register: func(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error) {
				return domain.Registration{}, service.NewBadParameterError("invalid backend address", nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrBadParameter,
			expectedCalls:  1,
		},
		{
			name: "507 pool exhausted",
			body: `{"name":"svc-a","backend_address":"127.0.0.1:8080"}`,
			register: func(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error) {
				return domain.Registration{}, service.NewAllocationExhaustedError("no free virtual slot", nil)
			},
			expectedStatus: http.StatusInsufficientStorage,
			expectedCode:   service.ErrAllocationExhausted,
			expectedCalls:  1,
		},
		{
			name: "500 registry failure",
			body: `{"name":"svc-a","backend_address":"127.0.0.1:8080"}`,
			register: func(ctx context.Context, name string, backend string, leaseSeconds int) (domain.Registration, error) {
				return domain.Registration{}, assert.AnError
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   service.ErrInternalServerError,
			expectedCalls:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mock.RegistryMock{RegisterFunc: tt.register}
			rec := serve(t, registry, http.MethodPost, "/v1/register", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Len(t, registry.RegisterCalls(), tt.expectedCalls)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeErr(t, rec).Error.Code)
				return
			}
			var got RegistrationResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, RegistrationResponse{
				InstanceId:               "inst-1",
				VirtualIp:                "10.0.0.100",
				VirtualPort:              9000,
				LeaseSeconds:             86400,
				HeartbeatIntervalSeconds: 10,
			}, got)
		})
	}
}

func TestHTTPServer_RegisterInstance_PassesArguments(t *testing.T) {
	registry := &mock.RegistryMock{}
	rec := serve(t, registry, http.MethodPost, "/v1/register", `{"name":"svc-a","backend_address":"127.0.0.1:8080","lease_seconds":30}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, registry.RegisterCalls(), 1)
	call := registry.RegisterCalls()[0]
	assert.Equal(t, "svc-a", call.Name)
	assert.Equal(t, "127.0.0.1:8080", call.Backend)
	assert.Equal(t, 30, call.LeaseSeconds)
}

func TestHTTPServer_HeartbeatInstance(t *testing.T) {
	tests := []struct {
		name           string
		heartbeat      func(ctx context.Context, instanceID string) (domain.Instance, error)
		expectedStatus int
	}{
		{
			name: "ok",
			heartbeat: func(ctx context.Context, instanceID string) (domain.Instance, error) {
				assert.Equal(t, "inst-1", instanceID)
				return testInstance, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "404 unknown instance",
			heartbeat: func(ctx context.Context, instanceID string) (domain.Instance, error) {
				return domain.Instance{}, service.NewEntityNotFoundError("instance not found", nil)
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mock.RegistryMock{HeartbeatFunc: tt.heartbeat}
			rec := serve(t, registry, http.MethodPost, "/v1/heartbeat/inst-1", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, service.ErrEntityNotFound, decodeErr(t, rec).Error.Code)
				return
			}
			var got InstanceInfo
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, toInstanceInfo(testInstance), got)
		})
	}
}

func TestHTTPServer_UnregisterInstance(t *testing.T) {
	tests := []struct {
		name           string
		deregister     func(ctx context.Context, instanceID string) (domain.Instance, error)
		expectedStatus int
	}{
		{
			name: "ok",
			deregister: func(ctx context.Context, instanceID string) (domain.Instance, error) {
				assert.Equal(t, "inst-1", instanceID)
				return testInstance, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "already gone is acknowledged",
			deregister: func(ctx context.Context, instanceID string) (domain.Instance, error) {
				return domain.Instance{}, service.NewEntityNotFoundError("instance not found", nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "500 registry failure",
			deregister: func(ctx context.Context, instanceID string) (domain.Instance, error) {
				return domain.Instance{}, assert.AnError
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mock.RegistryMock{DeregisterFunc: tt.deregister}
			rec := serve(t, registry, http.MethodPost, "/v1/unregister/inst-1", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Len(t, registry.DeregisterCalls(), 1)
			if tt.expectedStatus == http.StatusOK {
				assert.Empty(t, rec.Body.Bytes())
			}
		})
	}
}

func TestHTTPServer_GetInstances(t *testing.T) {
	tests := []struct {
		name      string
		instances []domain.Instance
	}{
		{name: "empty", instances: nil},
		{name: "one", instances: []domain.Instance{testInstance}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mock.RegistryMock{
				AllActiveFunc: func(ctx context.Context) []domain.Instance { return tt.instances },
			}
			rec := serve(t, registry, http.MethodGet, "/v1/instances", "")

			require.Equal(t, http.StatusOK, rec.Code)
			var got InstancesResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, toInstancesResponse(tt.instances), got)
			assert.NotNil(t, got.Instances, "empty list is encoded as []")
		})
	}
}

func TestHTTPServer_ResolveService(t *testing.T) {
	second := testInstance
	second.InstanceID = "inst-2"
	second.VirtualPort = 9001

	tests := []struct {
		name              string
		target            string
		instances         []domain.Instance
		expectedStatus    int
		expectedAddresses []string
	}{
		{
			name:              "two instances",
			target:            "/v1/resolve/svc-a",
			instances:         []domain.Instance{testInstance, second},
			expectedStatus:    http.StatusOK,
			expectedAddresses: []string{"10.0.0.100:9000", "10.0.0.100:9001"},
		},
		{
			name:              "unknown name is empty, not 404",
			target:            "/v1/resolve/svc-z",
			expectedStatus:    http.StatusOK,
			expectedAddresses: []string{},
		},
		{
			name:           "400 invalid name",
			target:         "/v1/resolve/bad!name",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mock.RegistryMock{
				ResolveFunc: func(ctx context.Context, name string) []domain.Instance { return tt.instances },
			}
			rec := serve(t, registry, http.MethodGet, tt.target, "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, service.ErrBadParameter, decodeErr(t, rec).Error.Code)
				assert.Empty(t, registry.ResolveCalls())
				return
			}
			var got ResolveResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.expectedAddresses, got.Addresses)
			assert.Len(t, got.Instances, len(tt.instances))
		})
	}
}

func TestHTTPServer_GetStats(t *testing.T) {
	registry := &mock.RegistryMock{
		StatsFunc: func(ctx context.Context) domain.RegistryStats {
			return domain.RegistryStats{Instances: 3, Services: 2, PoolSize: 1000, PoolInUse: 3}
		},
	}
	rec := serve(t, registry, http.MethodGet, "/v1/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"instances":3,"services":2,"pool_size":1000,"pool_in_use":3}`, rec.Body.String())
}

func TestHTTPServer_UnknownRoute(t *testing.T) {
	rec := serve(t, &mock.RegistryMock{}, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrEntityNotFound, decodeErr(t, rec).Error.Code)
}

func TestNewRequestValidator_InvalidDocument(t *testing.T) {
	_, err := NewRequestValidator([]byte("openapi: ["))
	assert.Error(t, err)
}

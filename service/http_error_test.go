package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCodeToStatusCodeMaps(t *testing.T) {
	m := NewErrorCodeToStatusCodeMaps()
	require.NotNil(t, m)
	assert.Equal(t, http.StatusBadRequest, m[ErrBadParameter])
	assert.Equal(t, http.StatusNotFound, m[ErrEntityNotFound])
	assert.Equal(t, http.StatusInsufficientStorage, m[ErrAllocationExhausted])
	assert.Equal(t, http.StatusServiceUnavailable, m[ErrServiceUnavailable])
	assert.Equal(t, http.StatusBadGateway, m[ErrBackendUnreachable])
	assert.Equal(t, http.StatusTooManyRequests, m[ErrRateLimited])
	assert.Equal(t, http.StatusInternalServerError, m[ErrInternalServerError])
}

func serveError(t *testing.T, method string, err error) (*httptest.ResponseRecorder, ErrResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := NewHTTPErrorHandler(NewErrorCodeToStatusCodeMaps(), log.NewNopLogger())
	handler.Handler(err, c)

	var body ErrResponse
	if method != http.MethodHead {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.NotNil(t, body.Error)
	}
	return rec, body
}

func TestHTTPErrorHandler_Handler_MyError_ReturnsMappedStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "bad_parameter", err: NewBadParameterError("invalid body", nil), wantStatus: http.StatusBadRequest, wantCode: ErrBadParameter},
		{name: "not_found", err: NewEntityNotFoundError("instance not found", nil), wantStatus: http.StatusNotFound, wantCode: ErrEntityNotFound},
		{name: "unavailable", err: NewServiceUnavailableError("no live instance", nil), wantStatus: http.StatusServiceUnavailable, wantCode: ErrServiceUnavailable},
		{name: "unreachable", err: NewBackendUnreachableError("dial failed", nil), wantStatus: http.StatusBadGateway, wantCode: ErrBackendUnreachable},
		{name: "exhausted", err: NewAllocationExhaustedError("pool full", nil), wantStatus: http.StatusInsufficientStorage, wantCode: ErrAllocationExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serveError(t, http.MethodGet, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHTTPErrorHandler_Handler_NonMyError_Returns500(t *testing.T) {
	rec, body := serveError(t, http.MethodGet, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrInternalServerError, body.Error.Code)
}

func TestHTTPErrorHandler_Handler_EchoHTTPError_WithRequestError_ReturnsBadParameter(t *testing.T) {
	reqErr := &openapi3filter.RequestError{Err: assert.AnError}
	he := echo.NewHTTPError(http.StatusBadRequest, "request body has an error")
	he.Internal = reqErr

	rec, body := serveError(t, http.MethodPost, he)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrBadParameter, body.Error.Code)
	assert.Equal(t, "request body has an error", body.Error.Message)
}

func TestHTTPErrorHandler_Handler_EchoNotFound(t *testing.T) {
	rec, body := serveError(t, http.MethodGet, echo.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrEntityNotFound, body.Error.Code)
}

func TestHTTPErrorHandler_Handler_Head_NoBody(t *testing.T) {
	rec, _ := serveError(t, http.MethodHead, NewServiceUnavailableError("no live instance", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestRegisterErrorHandler(t *testing.T) {
	e := echo.New()
	RegisterErrorHandler(e, log.NewNopLogger())
	require.NotNil(t, e.HTTPErrorHandler)
}

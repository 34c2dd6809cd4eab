package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/overlay/show", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddleware_StructuredError(t *testing.T) {
	c, rec := newTestContext()
	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return ValidationError("invalid input")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("validation")))
}

func TestMiddleware_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"stopped", fmt.Errorf("send: %w", domain.ErrControllerStopped), http.StatusServiceUnavailable},
		{"cooling down", domain.ErrCoolingDown, http.StatusConflict},
		{"unknown command", domain.ErrUnknownCommand, http.StatusBadRequest},
		{"plain", fmt.Errorf("standard error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext()
			handler := Middleware()(func(c echo.Context) error { return tt.err })

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMiddleware_NoError(t *testing.T) {
	c, rec := newTestContext()

	handler := Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMiddleware_PassesEchoHTTPError(t *testing.T) {
	c, _ := newTestContext()
	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTooManyRequests, "slow down")
	})

	err := handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("rate_limited")))
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		code     int
		wantType ErrorType
	}{
		{http.StatusBadRequest, TypeValidation},
		{http.StatusNotFound, TypeNotFound},
		{http.StatusConflict, TypeConflict},
		{http.StatusTooManyRequests, TypeRateLimited},
		{http.StatusServiceUnavailable, TypeUnavailable},
		{http.StatusTeapot, TypeInternal},
	}

	for _, tt := range tests {
		got := WrapHTTPError(echo.NewHTTPError(tt.code))
		assert.Equal(t, tt.wantType, got.Type, "code %d", tt.code)
	}
}

func TestWrapHTTPError_Message(t *testing.T) {
	got := WrapHTTPError(&echo.HTTPError{Code: http.StatusNotFound, Message: 42})
	assert.Equal(t, http.StatusText(http.StatusNotFound), got.Message)

	got = WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, "custom"))
	assert.Equal(t, "custom", got.Message)
}

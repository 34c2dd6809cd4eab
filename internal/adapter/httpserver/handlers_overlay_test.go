package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowAndHide_Accepted(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/overlay/show", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp commandAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SHOW", resp.Command)
	assert.Len(t, resp.CorrelationID, 8)

	rec = env.do(t, http.MethodPost, "/api/overlay/hide", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, []domain.Command{domain.CommandShow, domain.CommandHide}, env.controller.commands())
}

func TestShow_PropagatesCorrelationHeader(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/overlay/show", nil)
	req.Header.Set(correlation.Header, "loop-0001")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "loop-0001", rec.Header().Get(correlation.Header))

	id, ok := correlation.ID(env.controller.ctxIDs[0])
	require.True(t, ok)
	assert.Equal(t, "loop-0001", id)
}

func TestShow_ReplacesMalformedCorrelationHeader(t *testing.T) {
	env := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/overlay/show", nil)
	req.Header.Set(correlation.Header, "bad id\nlevel=ERROR")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, rec.Header().Get(correlation.Header), 8)
}

func TestCommand_JSONBody(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/overlay/commands", `{"command":"hide"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []domain.Command{domain.CommandHide}, env.controller.commands())
}

func TestCommand_Unknown(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/overlay/commands", `{"command":"blink"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
	assert.Equal(t, "blink", resp.Context["command"])
	assert.Empty(t, env.controller.commands())
}

func TestCommand_MalformedBody(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/overlay/commands", `{"command":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.TypeValidation, decodeError(t, rec).Type)
}

func TestShow_ControllerStopped(t *testing.T) {
	env := newTestServer(t)
	env.controller.err = fmt.Errorf("send: %w", domain.ErrControllerStopped)

	rec := env.do(t, http.MethodPost, "/api/overlay/show", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.TypeUnavailable, decodeError(t, rec).Type)
}

func TestStatus(t *testing.T) {
	env := newTestServer(t)
	env.controller.status = domain.OverlayStatus{
		State:      domain.ControllerPresent,
		Running:    true,
		SurfaceID:  "surface-1",
		Lifecycle:  "resumed",
		Counter:    12,
		Generation: 3,
	}

	rec := env.do(t, http.MethodGet, "/api/overlay/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.OverlayStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.ControllerPresent, got.State)
	assert.True(t, got.Running)
	assert.Equal(t, int64(12), got.Counter)
	assert.Equal(t, uint64(3), got.Generation)
}

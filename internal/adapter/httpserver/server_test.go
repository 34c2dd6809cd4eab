package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/app"
	"github.com/pscheid92/overlayd/internal/display"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/permission"
	"github.com/pscheid92/overlayd/internal/platform/config"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu     sync.Mutex
	sent   []domain.Command
	ctxIDs []context.Context
	err    error
	status domain.OverlayStatus
}

func (f *fakeController) Send(ctx context.Context, cmd domain.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	f.ctxIDs = append(f.ctxIDs, ctx)
	return nil
}

func (f *fakeController) Status(ctx context.Context) (domain.OverlayStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeController) commands() []domain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Command(nil), f.sent...)
}

type testEnv struct {
	srv         *Server
	clock       *clockwork.FakeClock
	controller  *fakeController
	compositor  *display.Compositor
	permissions *permission.Store
	screen      *permission.Screen
	foreground  *app.Foreground
}

type testOption func(*config.Config, *Deps)

func withHealthChecks(checks ...HealthCheck) testOption {
	return func(_ *config.Config, d *Deps) { d.HealthChecks = checks }
}

func withRateLimit(limit, burst int) testOption {
	return func(c *config.Config, _ *Deps) {
		c.APIRateLimit = limit
		c.APIRateBurst = burst
	}
}

func newTestServer(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := permission.NewStore(domain.PermissionDrawOverlay)
	screen := permission.NewScreen(store)
	fg := app.NewForeground(screen)
	require.NoError(t, fg.Resume())

	env := &testEnv{
		clock:       clock,
		controller:  &fakeController{},
		compositor:  display.NewCompositor(clock, store, display.Options{Width: 64, Height: 64}),
		permissions: store,
		screen:      screen,
		foreground:  fg,
	}

	cfg := &config.Config{Port: "0", APIRateLimit: 1000, APIRateBurst: 1000}
	deps := Deps{
		Controller:  env.controller,
		Display:     env.compositor,
		Permissions: store,
		Screen:      screen,
		Foreground:  fg,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	env.srv = NewServer(cfg, deps, clock)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/nope", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/display"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/permission"
	"github.com/pscheid92/overlayd/internal/platform/config"
)

type overlayController interface {
	Send(ctx context.Context, cmd domain.Command) error
	Status(ctx context.Context) (domain.OverlayStatus, error)
}

type displayService interface {
	Windows() []display.WindowInfo
	WritePNG(w io.Writer) error
	SetFocus(app string)
	Focused() string
	Frames() uint64
}

type permissionService interface {
	IsGranted(kind domain.PermissionKind) bool
	Grant(kind domain.PermissionKind)
	Revoke(kind domain.PermissionKind)
	OpenSettings(kind domain.PermissionKind) (permission.SettingsAction, error)
}

type permissionScreen interface {
	Statuses() []permission.Status
}

type foregroundApp interface {
	Resume() error
	State() domain.LifecycleState
	Sessions() int
}

// Deps are the collaborators the HTTP boundary drives.
type Deps struct {
	Controller   overlayController
	Display      displayService
	Permissions  permissionService
	Screen       permissionScreen
	Foreground   foregroundApp
	StatusStream http.Handler
	HealthChecks []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	controller   overlayController
	display      displayService
	permissions  permissionService
	screen       permissionScreen
	foreground   foregroundApp
	statusStream http.Handler

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		controller:   deps.Controller,
		display:      deps.Display,
		permissions:  deps.Permissions,
		screen:       deps.Screen,
		foreground:   deps.Foreground,
		statusStream: deps.StatusStream,
		healthChecks: deps.HealthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

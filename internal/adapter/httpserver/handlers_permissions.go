package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/permission"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
)

type permissionsResponse struct {
	Foreground string              `json:"foreground"`
	Sessions   int                 `json:"sessions"`
	Statuses   []permission.Status `json:"statuses"`
}

func (s *Server) registerPermissionRoutes(api *echo.Group) {
	api.GET("/permissions", s.handlePermissions)
	api.POST("/permissions/:kind/settings", s.handleOpenSettings)
	api.POST("/permissions/:kind/grant", s.handleGrant)
	api.POST("/permissions/:kind/revoke", s.handleRevoke)
	api.POST("/app/resume", s.handleResume)
}

func (s *Server) handlePermissions(c echo.Context) error {
	return s.writePermissions(c)
}

func (s *Server) writePermissions(c echo.Context) error {
	resp := permissionsResponse{
		Foreground: s.foreground.State().String(),
		Sessions:   s.foreground.Sessions(),
		Statuses:   s.screen.Statuses(),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write permissions response: %w", err)
	}
	return nil
}

func permissionKind(c echo.Context) (domain.PermissionKind, error) {
	kind, err := domain.ParsePermissionKind(c.Param("kind"))
	if err != nil {
		return "", apperrors.NotFoundError("unknown permission").WithContext("kind", c.Param("kind"))
	}
	return kind, nil
}

func (s *Server) handleOpenSettings(c echo.Context) error {
	kind, err := permissionKind(c)
	if err != nil {
		return err
	}

	action, err := s.permissions.OpenSettings(kind)
	if err != nil {
		return apperrors.NotFoundError(err.Error())
	}
	if err := c.JSON(http.StatusOK, action); err != nil {
		return fmt.Errorf("failed to write settings response: %w", err)
	}
	return nil
}

// handleGrant and handleRevoke stand in for the user flipping the switch in system settings.
// The screen only reflects the change after the app resumes.
func (s *Server) handleGrant(c echo.Context) error {
	kind, err := permissionKind(c)
	if err != nil {
		return err
	}
	s.permissions.Grant(kind)
	return s.writePermission(c, kind)
}

func (s *Server) handleRevoke(c echo.Context) error {
	kind, err := permissionKind(c)
	if err != nil {
		return err
	}
	s.permissions.Revoke(kind)
	return s.writePermission(c, kind)
}

func (s *Server) writePermission(c echo.Context, kind domain.PermissionKind) error {
	resp := permission.Status{Kind: kind, Granted: s.permissions.IsGranted(kind)}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write permission response: %w", err)
	}
	return nil
}

func (s *Server) handleResume(c echo.Context) error {
	if err := s.foreground.Resume(); err != nil {
		return apperrors.InternalError("failed to resume foreground app", err)
	}
	return s.writePermissions(c)
}

package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/display"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
)

type focusRequest struct {
	App string `json:"app"`
}

type windowsResponse struct {
	Focused string               `json:"focused"`
	Frames  uint64               `json:"frames"`
	Windows []display.WindowInfo `json:"windows"`
}

func (s *Server) registerDisplayRoutes(api *echo.Group) {
	api.GET("/display/windows", s.handleWindows)
	api.GET("/display/frame.png", s.handleFrame)
	api.POST("/display/focus", s.handleFocus)
}

func (s *Server) handleWindows(c echo.Context) error {
	resp := windowsResponse{
		Focused: s.display.Focused(),
		Frames:  s.display.Frames(),
		Windows: s.display.Windows(),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write windows response: %w", err)
	}
	return nil
}

func (s *Server) handleFrame(c echo.Context) error {
	var buf bytes.Buffer
	if err := s.display.WritePNG(&buf); err != nil {
		if errors.Is(err, display.ErrNoFrame) {
			return apperrors.NotFoundError("no frame composed yet")
		}
		return apperrors.InternalError("failed to encode frame", err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := c.Blob(http.StatusOK, "image/png", buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// handleFocus simulates the user switching to another app in the foreground.
func (s *Server) handleFocus(c echo.Context) error {
	var req focusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	app := strings.TrimSpace(req.App)
	if app == "" {
		return apperrors.ValidationError("app is required")
	}

	s.display.SetFocus(app)
	if err := c.JSON(http.StatusOK, map[string]string{"focused": app}); err != nil {
		return fmt.Errorf("failed to write focus response: %w", err)
	}
	return nil
}

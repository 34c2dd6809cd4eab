package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
)

const commandTimeout = 5 * time.Second

type commandRequest struct {
	Command string `json:"command"`
}

type commandAccepted struct {
	Command       string `json:"command"`
	CorrelationID string `json:"correlation_id"`
}

func (s *Server) registerOverlayRoutes(api *echo.Group) {
	api.POST("/overlay/show", s.handleShow)
	api.POST("/overlay/hide", s.handleHide)
	api.POST("/overlay/commands", s.handleCommand)
	api.GET("/overlay/status", s.handleStatus)
}

func (s *Server) handleShow(c echo.Context) error {
	return s.deliver(c, domain.CommandShow)
}

func (s *Server) handleHide(c echo.Context) error {
	return s.deliver(c, domain.CommandHide)
}

func (s *Server) handleCommand(c echo.Context) error {
	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	cmd, err := domain.ParseCommand(req.Command)
	if err != nil {
		return apperrors.ValidationError("unknown command").WithContext("command", req.Command)
	}
	return s.deliver(c, cmd)
}

// deliver enqueues cmd and answers 202; the controller applies it asynchronously.
func (s *Server) deliver(c echo.Context, cmd domain.Command) error {
	metrics.ControlCommandsReceivedTotal.WithLabelValues("http", cmd.String()).Inc()

	ctx, cancel := context.WithTimeout(c.Request().Context(), commandTimeout)
	defer cancel()

	if err := s.controller.Send(ctx, cmd); err != nil {
		return fmt.Errorf("deliver %s: %w", cmd, err)
	}

	corrID, _ := correlation.ID(ctx)
	resp := commandAccepted{Command: cmd.String(), CorrelationID: corrID}
	if err := c.JSON(http.StatusAccepted, resp); err != nil {
		return fmt.Errorf("failed to write command response: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), commandTimeout)
	defer cancel()

	status, err := s.controller.Status(ctx)
	if err != nil {
		return fmt.Errorf("read overlay status: %w", err)
	}
	if err := c.JSON(http.StatusOK, status); err != nil {
		return fmt.Errorf("failed to write status response: %w", err)
	}
	return nil
}

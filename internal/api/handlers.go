// Package api exposes the timepoint service over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/provider"
	"timepoint/backend/internal/repository"
	"timepoint/backend/internal/services"
)

// Handler contains the HTTP handlers for the timepoint REST API.
type Handler struct {
	svc    services.TimepointService
	router *provider.Router
	logger *logging.Logger
}

// NewHandler creates a new Handler with required dependencies.
func NewHandler(svc services.TimepointService, router *provider.Router, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, router: router, logger: logger}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.HandleHealth)

	v1 := e.Group("/api/v1")
	v1.POST("/timepoints", h.HandleGenerate)
	v1.GET("/timepoints/stream", h.HandleStream)
	v1.GET("/timepoints/:id", h.HandleGet)
	v1.POST("/timepoints/:id/navigate", h.HandleNavigate)
	v1.GET("/timepoints/:id/sequence", h.HandleSequence)
	v1.GET("/models", h.HandleModels)
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "timepoint",
		Version:   "1.0.0",
	})
}

// ProblemDetails represents an RFC 7807 Problem Details response.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problem writes an RFC 7807 Problem Details JSON error response.
func problem(c echo.Context, status int, title, detail string) error {
	p := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	return c.JSON(status, p)
}

// mapError translates service errors to problem responses.
func (h *Handler) mapError(c echo.Context, err error) error {
	var pre *services.PreconditionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return problem(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, services.ErrCycle):
		return problem(c, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &pre):
		return problem(c, http.StatusUnprocessableEntity, "Precondition Failed", err.Error())
	default:
		h.logger.Error("request failed", "path", c.Request().URL.Path, "error", err)
		return problem(c, http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
	}
}

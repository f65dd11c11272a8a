// Package v1 provides the HTTP handlers of the work session API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fieldops/internal/realtime"
	"github.com/xiaot623/gogo/fieldops/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *realtime.Hub
}

// NewHandler creates a new handler. hub may be nil when the live feed is
// disabled.
func NewHandler(service *service.Service, hub *realtime.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
	}
}

// RegisterRoutes registers the work session routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session lifecycle
	e.POST("/work-session/start", h.StartWorkSession)
	e.POST("/work-session/manual", h.CreateManualWorkSession)
	e.POST("/work-session/:id/pause", h.PauseWorkSession)
	e.POST("/work-session/:id/resume", h.ResumeWorkSession)
	e.POST("/work-session/:id/stop", h.StopWorkSession)
	e.GET("/work-session/:id", h.GetWorkSession)

	// Queries
	e.GET("/mission/:idMission/sessions", h.ListMissionSessions)
	e.GET("/account/:idAccount/sessions", h.ListAccountSessions)
	e.GET("/account/:idAccount/latest-session", h.GetLatestOpenSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "healthy",
		"version": "0.1.0",
	}
	if h.hub != nil {
		resp["subscribers"] = h.hub.ConnectionCount()
	}
	return c.JSON(http.StatusOK, resp)
}

package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/transport/http/apierror"
)

// StartWorkSession clocks an account in.
// POST /work-session/start
func (h *Handler) StartWorkSession(c echo.Context) error {
	var req domain.StartWorkSessionRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	ws, err := h.service.StartWorkSession(c.Request().Context(), req)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusCreated, ws)
}

// PauseWorkSession pauses a running session.
// POST /work-session/:id/pause
func (h *Handler) PauseWorkSession(c echo.Context) error {
	resp, err := h.service.PauseWorkSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ResumeWorkSession resumes a paused session.
// POST /work-session/:id/resume
func (h *Handler) ResumeWorkSession(c echo.Context) error {
	resp, err := h.service.ResumeWorkSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// StopWorkSession ends a session.
// POST /work-session/:id/stop
func (h *Handler) StopWorkSession(c echo.Context) error {
	resp, err := h.service.StopWorkSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateManualWorkSession records a finished session after the fact.
// POST /work-session/manual
func (h *Handler) CreateManualWorkSession(c echo.Context) error {
	var req domain.ManualWorkSessionRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.service.CreateManualWorkSession(c.Request().Context(), req)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetWorkSession returns one session with pauses and durations.
// GET /work-session/:id
func (h *Handler) GetWorkSession(c echo.Context) error {
	view, err := h.service.GetWorkSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

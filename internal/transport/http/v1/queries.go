package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fieldops/internal/transport/http/apierror"
)

// ListMissionSessions lists the sessions of a mission.
// GET /mission/:idMission/sessions
func (h *Handler) ListMissionSessions(c echo.Context) error {
	views, err := h.service.ListWorkSessionsByMission(c.Request().Context(), c.Param("idMission"))
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// ListAccountSessions lists the sessions of an account. Without from, to
// or limit it returns the sessions not tied to a mission; with any of
// them it returns every session in the range.
// GET /account/:idAccount/sessions?from&to&limit
func (h *Handler) ListAccountSessions(c echo.Context) error {
	ctx := c.Request().Context()
	accountID := c.Param("idAccount")
	from, to, limit := c.QueryParam("from"), c.QueryParam("to"), c.QueryParam("limit")

	if from == "" && to == "" && limit == "" {
		views, err := h.service.ListWorkSessionsWithoutMission(ctx, accountID)
		if err != nil {
			return apierror.Write(c, err)
		}
		return c.JSON(http.StatusOK, views)
	}

	rng, err := h.service.ParseWorkSessionRange(from, to, limit)
	if err != nil {
		return apierror.Write(c, err)
	}
	views, err := h.service.ListWorkSessionsByAccount(ctx, accountID, rng)
	if err != nil {
		return apierror.Write(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// GetLatestOpenSession returns the newest open session of an account, or
// 204 when there is none.
// GET /account/:idAccount/latest-session
func (h *Handler) GetLatestOpenSession(c echo.Context) error {
	view, err := h.service.LatestOpenWorkSession(c.Request().Context(), c.Param("idAccount"))
	if err != nil {
		return apierror.Write(c, err)
	}
	if view == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, view)
}

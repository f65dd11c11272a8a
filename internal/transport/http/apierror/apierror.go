// Package apierror writes the JSON error body shared by every HTTP route,
// including the websocket upgrade.
package apierror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// CauseKey is the echo context key holding the error behind a 500
// response, for the request logger.
const CauseKey = "error_cause"

// Body is the error payload.
type Body struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Status maps an error kind to its HTTP status.
func Status(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindMissingField, domain.ErrorKindInvalidID, domain.ErrorKindInvalidInput, domain.ErrorKindConflict:
		return http.StatusBadRequest
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Write translates err into a status code and JSON body. Internal errors
// expose only their message; the wrapped cause stays in the context.
func Write(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.ErrorKindInternal {
		msg = "internal error"
		var de *domain.Error
		if errors.As(err, &de) && de.Message != "" {
			msg = de.Message
		}
		c.Set(CauseKey, err)
	}
	return c.JSON(Status(kind), Body{Error: msg, Kind: string(kind)})
}

package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/transport/http/apierror"
)

func invalidBody(c echo.Context) error {
	return apierror.Write(c, domain.InvalidInput("invalid request body"))
}

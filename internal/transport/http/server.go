// Package http provides the HTTP server implementation for the work
// session service.
package http

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/fieldops/internal/realtime"
	"github.com/xiaot623/gogo/fieldops/internal/service"
	"github.com/xiaot623/gogo/fieldops/internal/transport/http/apierror"
	v1 "github.com/xiaot623/gogo/fieldops/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. liveFeed may be nil,
// in which case the websocket route is not registered.
func NewServer(svc *service.Service, hub *realtime.Hub, liveFeed *realtime.Server, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, hub)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if liveFeed != nil {
		e.GET("/ws/work-sessions", liveFeed.HandleWebSocket)
	}

	return e
}

func requestLoggerConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			} else if v.Status >= 500 {
				level = slog.LevelError
			}
			if cause, ok := c.Get(apierror.CauseKey).(error); ok {
				attrs = append(attrs, slog.String("cause", cause.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}
}

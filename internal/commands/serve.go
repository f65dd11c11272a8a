package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/fieldops/internal/clock"
	"github.com/xiaot623/gogo/fieldops/internal/policy"
	"github.com/xiaot623/gogo/fieldops/internal/realtime"
	"github.com/xiaot623/gogo/fieldops/internal/service"
	transporthttp "github.com/xiaot623/gogo/fieldops/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and live feed",
	Args:  cobra.NoArgs,
	RunE:  withApp(runServe),
}

func runServe(cmd *cobra.Command, args []string, rt *app) error {
	cfg, logger := rt.cfg, rt.logger

	logger.Info("starting fieldops",
		"version", version,
		"http_port", cfg.HTTPPort,
		"database_driver", cfg.DatabaseDriver)

	// Initialize policy engine
	ctx := context.Background()
	policyContent, err := policy.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize live feed hub
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := realtime.NewHub(logger.With("component", "realtime"))
	go hub.Run(hubCtx)

	// Initialize service and server
	svc := service.New(rt.store, clock.Real(), policyEngine, hub)
	liveFeed := realtime.NewServer(cfg, hub, logger.With("component", "realtime"))
	server := transporthttp.NewServer(svc, hub, liveFeed, logger.With("component", "http"))

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("HTTP API started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down fieldops")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}
	stopHub()

	logger.Info("fieldops stopped")
	return nil
}

// Package main is the entry point for the Plara payment API server.
//
// It loads configuration, builds the Polar client and webhook plumbing, wires
// the HTTP handlers onto the core chassis (middleware, routing, health), and
// serves until interrupted. Graceful shutdown is handled via OS signal
// interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plara/internal/api/handlers"
	"plara/internal/config"
	"plara/internal/core"
	"plara/internal/events"
	"plara/internal/external"
)

// upstreamTimeout bounds each individual attempt against the Polar API. The
// retry layer may make one additional attempt, so the worst-case upstream
// wait stays inside the request timeout enforced by the router.
const upstreamTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("plara payment API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"polar_api", cfg.APIBase(),
	)

	if cfg.Polar.WebhookSecret.Unmask() == "" {
		// Startup is allowed so checkout keeps working, but every webhook
		// delivery will be rejected with a configuration error.
		logger.Warn("POLAR_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}

	polarClient := external.NewPolarClient(
		&http.Client{Timeout: upstreamTimeout},
		external.PolarClientConfig{
			AccessToken: cfg.Polar.AccessToken,
			BaseURL:     cfg.APIBase(),
			Logger:      logger,
		},
	)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	checkoutHandler := handlers.NewCheckoutHandler(polarClient, cfg, srv.Validator, logger)
	catalogHandler := handlers.NewCatalogHandler(polarClient, cfg.Polar.OrganizationID, logger)
	customerHandler := handlers.NewCustomerHandler(polarClient, cfg.Polar.OrganizationID, logger)

	dispatcher := events.NewDispatcher(logger, events.Hooks{})
	webhookHandler := handlers.NewPolarWebhookHandler(
		&external.HMACVerifier{},
		dispatcher,
		cfg.Polar.WebhookSecret,
		logger,
	)

	srv.APIRouteRegistrars = append(srv.APIRouteRegistrars,
		checkoutHandler.RegisterRoutes,
		catalogHandler.RegisterRoutes,
		customerHandler.RegisterRoutes,
		webhookHandler.RegisterRoutes,
	)
	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars,
		webhookHandler.RegisterRootRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the HTTP listener with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

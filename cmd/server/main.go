// Command main is the entry point for the catspot backend server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catspot/internal/bootstrap"
	"catspot/internal/config"
	"catspot/internal/observability"
	"catspot/internal/server"
)

// @title catspot API
// @version 1.0
// @description Cat spotting map: photo posts, comments, likes and live panels.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@catspot.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	observability.SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	shutdownTracing, err := observability.InitTracing(bootstrap.TracingConfig(cfg, "catspot-api"))
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			observability.GlobalLogger.Error("server stopped", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		observability.GlobalLogger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		observability.GlobalLogger.Error("server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		observability.GlobalLogger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
}

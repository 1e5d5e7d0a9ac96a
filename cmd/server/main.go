// Command server is the entry point for the FarmLink backend API.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmlink/internal/bootstrap"
	"farmlink/internal/config"
	"farmlink/internal/middleware"
	"farmlink/internal/observability"
	"farmlink/internal/server"
)

// @title FarmLink API
// @version 1.0
// @description Agricultural community API with role profiles, posts, polls, government schemes, weather and market prices
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@farmlink.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	middleware.ConfigureLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: 1,
	})
	if err != nil {
		middleware.Logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedSchemes: !cfg.IsProduction()})
	if err != nil {
		middleware.Logger.Error("failed to initialize runtime", "error", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(ctx, cfg, db, rdb)
	if err != nil {
		middleware.Logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			middleware.Logger.Error("server shutdown error", "error", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("tracing shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, context.Canceled) {
		middleware.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

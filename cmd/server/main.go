// Command server is the entry point for the Resort to Nature backend.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resort/internal/bootstrap"
	"resort/internal/config"
	"resort/internal/jobs"
	"resort/internal/middleware"
	"resort/internal/observability"
	"resort/internal/server"
)

// @title Resort to Nature API
// @version 1.0
// @description Marketplace API for nature accommodations and experiences, with messaging, connections, and host administration
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@resorttonature.dev

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
	logger := middleware.InitLogger(cfg.Env)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "resort-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Error("tracing disabled", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedIfEmpty: true})
	if err != nil {
		logger.Error("runtime init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg, db, rdb)
	if err != nil {
		logger.Error("server init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		scheduler, err = jobs.New(cfg, jobs.Deps{
			Analytics: srv.Analytics(),
			Profiles:  srv.Profiles(),
			Presence:  srv.Hub(),
		})
		if err != nil {
			logger.Error("job scheduler init failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		scheduler.Start(ctx)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if scheduler != nil {
			scheduler.Stop(ctx)
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
	}
}

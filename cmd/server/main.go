package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/officesearch/internal/app"
	"github.com/JonMunkholm/officesearch/internal/config"
	"github.com/JonMunkholm/officesearch/internal/logging"
	"github.com/JonMunkholm/officesearch/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server := web.NewServer(a.Service, web.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		AdminEndpoint:  cfg.Ingest.AdminEndpoint,
		MetricsPath:    metricsPath,
	})

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Ingest.RefreshInterval > 0 {
		go a.Service.StartRefreshScheduler(jobCtx, cfg.Ingest.RefreshInterval)
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// An aborted run rolls back, but let it finish writing its log lines.
		if a.Service.Ingesting(shutdownCtx) {
			slog.Info("waiting for ingestion to finish")
			if err := a.Service.WaitForIngestion(shutdownCtx); err != nil {
				slog.Warn("ingestion did not finish in time", "error", err)
			}
		}
	}()

	err = server.Start(cfg.Server.Addr(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

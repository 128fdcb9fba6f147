package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prankline/prankline/internal/api"
	"github.com/prankline/prankline/internal/config"
	"github.com/prankline/prankline/internal/database"
	"github.com/prankline/prankline/internal/metrics"
	"github.com/prankline/prankline/internal/prank"
	"github.com/prankline/prankline/internal/telnyx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting prankline",
		"http_port", cfg.HTTPPort,
		"max_call_duration", cfg.MaxCallDuration(),
	)

	// Open database and run migrations.
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions := database.NewPrankSessionRepository(db)
	users := database.NewUserRepository(db)

	calls := telnyx.NewClient(telnyx.Config{
		APIKey:       cfg.TelnyxAPIKey,
		ConnectionID: cfg.TelnyxConnectionID,
		AudioURL:     cfg.AudioURL,
	})

	pranks := prank.NewService(sessions)

	// Timeout workers outlive HTTP requests; each builds its own service over
	// the shared pool.
	workers := prank.NewWorkerRegistry(cfg.MaxCallDuration(), calls, func() *prank.Service {
		return prank.NewService(sessions)
	})

	orch := prank.NewOrchestrator(pranks, calls, workers)

	// Prometheus registry with process/runtime collectors plus our own.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(sessions, workers, time.Now()),
	)
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	handler := api.NewServer(cfg, users, pranks, orch, metricsHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout. The HTTP surface drains first so no new
	// sessions start, then the timeout workers are aborted and awaited.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := workers.Shutdown(ctx); err != nil {
		slog.Error("timeout worker shutdown error", "error", err)
	}

	slog.Info("prankline stopped")
}

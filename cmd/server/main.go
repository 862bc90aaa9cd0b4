package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-catalog/internal/logging"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/api"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/metrics"
)

func main() {
	configFile := flag.String("config", "", "optional yaml/json/env config file; environment variables override it")
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if err := run(*configFile); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	var (
		cfg *config.ServerConfig
		err error
	)
	if configFile != "" {
		cfg, err = config.FromFile(configFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Environment, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var collector *metrics.Collector
	var extra []simplecatalog.Option
	if cfg.EnableMetrics {
		collector = metrics.New()
		extra = append(extra, simplecatalog.WithEventSink(collector))
	}

	svc, err := cfg.BuildService(ctx, extra...)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           routes(cfg, svc, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("simple-catalog server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseType(),
			"storage", cfg.StorageType(),
			"metrics", cfg.EnableMetrics)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			svc.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "err", err)
	}

	// Flushes pending download counters before the stores close.
	if err := svc.Close(); err != nil {
		return fmt.Errorf("close service: %w", err)
	}

	slog.Info("server exiting")
	return nil
}

func routes(cfg *config.ServerConfig, svc simplecatalog.Service, collector *metrics.Collector) http.Handler {
	requestLogger := httplog.NewLogger("simple-catalog", httplog.Options{
		JSON:            cfg.Environment != "development",
		LogLevel:        logging.ParseLevel(cfg.LogLevel),
		Concise:         true,
		QuietDownRoutes: []string{"/health", "/metrics"},
		QuietDownPeriod: 10 * time.Second,
	})

	opts := api.Options{
		Service:        svc,
		AdminKey:       cfg.AdminKey,
		PlaceholderURL: cfg.PlaceholderURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Environment:    cfg.Environment,
		DatabaseType:   cfg.DatabaseType(),
		StorageType:    cfg.StorageType(),
	}
	if collector != nil {
		opts.Metrics = collector
		opts.MetricsHandler = collector.Handler()
	}

	r := chi.NewRouter()
	r.Use(api.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Mount("/"+strings.Trim(cfg.APIPrefix, "/"), api.NewRouter(opts))
	return r
}

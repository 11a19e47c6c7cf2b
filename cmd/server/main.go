package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pandemic-dashboard/internal/config"
	"pandemic-dashboard/internal/handlers"
	"pandemic-dashboard/internal/repository"
	"pandemic-dashboard/internal/services"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("pandemic-dashboard-api", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting pandemic dashboard API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
		"cutoff_date": cfg.Data.CutoffDate,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("pandemic_dashboard")

	// Initialize repository
	repo, closeRepo, err := repository.OpenSource(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to open data source", logging.Fields{
			"data_source": cfg.Data.Source,
		}, err)
	}
	defer closeRepo()

	// Load the dataset once; the API serves it read-only
	cutoff, _ := cfg.Data.Cutoff()
	loader := services.NewLoaderService(repo, logger, metricsCollector, services.LoaderOptions{
		Cutoff:        cutoff,
		RetryAttempts: cfg.Data.RetryAttempts,
		RetryInterval: cfg.Data.RetryInterval,
	})

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Data.FetchTimeout*time.Duration(cfg.Data.RetryAttempts+1))
	dataset, err := loader.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load series", logging.Fields{}, err)
	}

	// Initialize services
	dashboardService := services.NewDashboardService(dataset, cfg.ContinentMap(), logger, metricsCollector)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	dashboardHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
			"dates":   dataset.Len(),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

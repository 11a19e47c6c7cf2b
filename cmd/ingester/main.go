package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"pandemic-dashboard/internal/config"
	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/repository"
	"pandemic-dashboard/internal/services"
	"pandemic-dashboard/pkg/database"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	source := flag.String("source", "", "CSV source to import from: http or file (default: data.source)")
	batchSize := flag.Int("batch-size", repository.DefaultImportBatchSize, "Number of values written per insert")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *source != "" {
		cfg.Data.Source = *source
	}
	if cfg.Data.Source == config.SourcePostgres {
		fmt.Fprintln(os.Stderr, "The ingester imports into PostgreSQL; choose an http or file source")
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("pandemic-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting series import", logging.Fields{
		"version":    version,
		"source":     cfg.Data.Source,
		"batch_size": *batchSize,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("pandemic_ingester")

	// Initialize source and database
	csvRepo, err := repository.CSVSource(cfg.Data, logger)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to open source", logging.Fields{}, err)
	}

	db, err := database.NewPostgresDB(ctx, cfg.Database.ToDatabaseConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	pgRepo := repository.NewPostgresSeriesRepository(db, logger, metricsCollector)

	// Import all series
	importService := services.NewImportService(csvRepo, pgRepo, logger, metricsCollector)
	result, err := importService.ImportAll(ctx, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Import failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Series Imported:    %d/%d\n", result.Kinds, len(models.SeriesKinds))
	fmt.Printf("Locations:          %d\n", result.Locations)
	fmt.Printf("Values:             %d\n", result.Values)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if seconds := result.Duration.Seconds(); seconds > 0 {
		fmt.Printf("Values/Second:      %.2f\n", float64(result.Values)/seconds)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Series import finished", logging.Fields{
		"kinds":            result.Kinds,
		"values":           result.Values,
		"error_count":      len(result.Errors),
		"duration_seconds": result.Duration.Seconds(),
	})

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

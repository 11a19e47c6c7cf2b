package services

import (
	"context"
	"fmt"
	"time"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/repository"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

// SeriesImporter stores a series table
type SeriesImporter interface {
	ImportSeries(ctx context.Context, kind models.SeriesKind, table *models.RawSeriesTable, batchSize int) (int, error)
}

// ImportService copies series tables from a source into a store
type ImportService struct {
	source  repository.SeriesRepository
	store   SeriesImporter
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// ImportResult contains import statistics
type ImportResult struct {
	Kinds     int
	Locations int
	Values    int
	Duration  time.Duration
	Errors    []string
}

// NewImportService creates a new import service
func NewImportService(source repository.SeriesRepository, store SeriesImporter, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ImportService {
	return &ImportService{
		source:  source,
		store:   store,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ImportAll imports every series kind. A failing kind is recorded in the
// result and the remaining kinds are still imported.
func (s *ImportService) ImportAll(ctx context.Context, batchSize int) (*ImportResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[IMPORT_START] Starting series import", logging.Fields{
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	for _, kind := range models.SeriesKinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		locations, values, err := s.importKind(ctx, kind, batchSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import %s: %v", kind, err))
			s.logger.Error(ctx, "[IMPORT_KIND_ERROR] Series import failed", logging.Fields{
				"kind":   string(kind),
				"source": s.source.Describe(kind),
				"stage":  "KIND_PROCESSING",
			}, err)
			continue
		}

		result.Kinds++
		result.Locations += locations
		result.Values += values

		s.logger.Info(ctx, "[IMPORT_KIND_SUCCESS] Series imported", logging.Fields{
			"kind":      string(kind),
			"locations": locations,
			"values":    values,
			"stage":     "KIND_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Series import completed", logging.Fields{
		"kinds":            result.Kinds,
		"locations":        result.Locations,
		"values":           result.Values,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *ImportService) importKind(ctx context.Context, kind models.SeriesKind, batchSize int) (int, int, error) {
	table, err := s.source.FetchSeries(ctx, kind)
	if err != nil {
		s.metrics.RecordSourceError(string(kind), errorType(err))
		return 0, 0, err
	}

	values, err := s.store.ImportSeries(ctx, kind, table, batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to store series: %w", err)
	}

	return len(table.Rows), values, nil
}

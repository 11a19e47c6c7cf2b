package repository

import (
	"context"
	"fmt"

	"pandemic-dashboard/internal/config"
	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/database"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

// CSVSource builds the http or file repository named by cfg.Source
func CSVSource(cfg config.DataConfig, logger *logging.StructuredLogger) (SeriesRepository, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return NewHTTPSeriesRepository(map[models.SeriesKind]string{
			models.KindConfirmed: cfg.ConfirmedURL,
			models.KindDeaths:    cfg.DeathsURL,
			models.KindRecovered: cfg.RecoveredURL,
		}, cfg.FetchTimeout, logger), nil
	case config.SourceFile:
		return NewFileSeriesRepository(map[models.SeriesKind]string{
			models.KindConfirmed: cfg.ConfirmedPath,
			models.KindDeaths:    cfg.DeathsPath,
			models.KindRecovered: cfg.RecoveredPath,
		}, logger), nil
	default:
		return nil, fmt.Errorf("data source %q is not a CSV source", cfg.Source)
	}
}

// OpenSource builds the repository selected by data.source. The returned
// close function releases the database pool of a postgres source.
func OpenSource(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (SeriesRepository, func() error, error) {
	if cfg.Data.Source != config.SourcePostgres {
		repo, err := CSVSource(cfg.Data, logger)
		return repo, func() error { return nil }, err
	}

	db, err := database.NewPostgresDB(ctx, cfg.Database.ToDatabaseConfig(), logger, metricsCollector)
	if err != nil {
		return nil, nil, err
	}
	return NewPostgresSeriesRepository(db, logger, metricsCollector), db.Close, nil
}

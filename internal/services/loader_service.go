package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/repository"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

// LoaderOptions controls cutoff and retry behaviour of a load
type LoaderOptions struct {
	Cutoff        time.Time
	RetryAttempts int
	RetryInterval time.Duration
}

// LoaderService fetches the three series and builds a Dataset
type LoaderService struct {
	repo    repository.SeriesRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	opts    LoaderOptions
}

// NewLoaderService creates a new loader service
func NewLoaderService(repo repository.SeriesRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, opts LoaderOptions) *LoaderService {
	return &LoaderService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		opts:    opts,
	}
}

// Load fetches all series concurrently, applies the cutoff and reconciles
// the date columns. Any source failure aborts the load with a
// *models.DataSourceError.
func (s *LoaderService) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	s.logger.Info(ctx, "[LOAD_START] Loading series", logging.Fields{
		"cutoff":         s.opts.Cutoff.Format(models.ColumnDateLayout),
		"retry_attempts": s.opts.RetryAttempts,
	})

	tables := make([]*models.RawSeriesTable, len(models.SeriesKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range models.SeriesKinds {
		g.Go(func() error {
			table, err := s.fetch(gctx, kind)
			if err != nil {
				return err
			}
			tables[i] = table.LimitToCutoff(s.opts.Cutoff)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "[LOAD_ERROR] Series load failed", logging.Fields{}, err)
		return nil, err
	}

	confirmed, deaths, recovered := tables[0], tables[1], tables[2]

	common := models.IntersectColumns(confirmed, deaths, recovered)
	if dropped := countDroppedColumns(common, tables...); dropped > 0 {
		s.metrics.DroppedDatesTotal.Add(float64(dropped))
		s.logger.Warn(ctx, "[LOAD_RECONCILE] Dates missing from some series were dropped", logging.Fields{
			"dropped_dates": dropped,
			"kept_dates":    len(common),
		})
	}
	if len(common) == 0 {
		return nil, &models.DataSourceError{
			Source: "reconcile",
			Err:    errors.New("no date on or before the cutoff is shared by all series"),
		}
	}

	dataset, err := NewDataset(confirmed.Project(common), deaths.Project(common), recovered.Project(common))
	if err != nil {
		return nil, &models.DataSourceError{Source: "reconcile", Err: err}
	}

	s.metrics.LoadedDates.Set(float64(dataset.Len()))

	s.logger.Info(ctx, "[LOAD_COMPLETE] Series loaded", logging.Fields{
		"dates":       dataset.Len(),
		"first_date":  common[0],
		"last_date":   common[len(common)-1],
		"countries":   len(dataset.Countries()),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return dataset, nil
}

// fetch reads one series, retrying transient failures when configured
func (s *LoaderService) fetch(ctx context.Context, kind models.SeriesKind) (*models.RawSeriesTable, error) {
	timer := s.metrics.NewTimer(s.metrics.SourceFetchDuration.WithLabelValues(string(kind)))
	defer timer.ObserveDuration()

	var table *models.RawSeriesTable
	operation := func() error {
		var err error
		table, err = s.repo.FetchSeries(ctx, kind)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryInterval), uint64(max(s.opts.RetryAttempts, 0))),
		ctx,
	)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		s.logger.Warn(ctx, "[FETCH_RETRY] Retrying series fetch", logging.Fields{
			"kind":    string(kind),
			"source":  s.repo.Describe(kind),
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	})
	if err != nil {
		s.metrics.RecordSourceError(string(kind), errorType(err))

		var srcErr *models.DataSourceError
		if !errors.As(err, &srcErr) {
			err = &models.DataSourceError{Kind: kind, Source: s.repo.Describe(kind), Err: err}
		}
		s.logger.Error(ctx, "[FETCH_ERROR] Series fetch failed", logging.Fields{
			"kind":   string(kind),
			"source": s.repo.Describe(kind),
		}, err)
		return nil, err
	}

	s.metrics.SourceRowsLoaded.WithLabelValues(string(kind)).Set(float64(len(table.Rows)))
	return table, nil
}

// countDroppedColumns counts the distinct columns of tables missing from common
func countDroppedColumns(common []string, tables ...*models.RawSeriesTable) int {
	kept := make(map[string]struct{}, len(common))
	for _, col := range common {
		kept[col] = struct{}{}
	}

	dropped := make(map[string]struct{})
	for _, table := range tables {
		for _, col := range table.Columns {
			if _, ok := kept[col]; !ok {
				dropped[col] = struct{}{}
			}
		}
	}
	return len(dropped)
}

func isTransient(err error) bool {
	var t interface{ IsTransient() bool }
	if errors.As(err, &t) {
		return t.IsTransient()
	}
	return true
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case isTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}

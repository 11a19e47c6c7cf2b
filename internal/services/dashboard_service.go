package services

import (
	"context"
	"time"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

// DateSelector picks a date by label or by index. An empty selector means
// the latest date; Date wins over Index when both are set.
type DateSelector struct {
	Index *int
	Date  string
}

// AtIndex selects a date index
func AtIndex(idx int) DateSelector {
	return DateSelector{Index: &idx}
}

// DateRange describes the dates available for selection
type DateRange struct {
	Dates    []string  `json:"dates"`
	Latest   int       `json:"latest_index"`
	LoadedAt time.Time `json:"loaded_at"`
}

// SnapshotResult is a snapshot together with the date it was built for
type SnapshotResult struct {
	Index  int                      `json:"index"`
	Date   string                   `json:"date"`
	Metric models.Metric            `json:"metric,omitempty"`
	Rows   []models.CountrySnapshot `json:"rows"`
}

// TreemapResult holds the continent-annotated rows of one snapshot
type TreemapResult struct {
	Index  int                   `json:"index"`
	Date   string                `json:"date"`
	Metric models.Metric         `json:"metric"`
	Rows   []models.ContinentRow `json:"rows"`
}

// DashboardService answers dashboard queries from an immutable Dataset
type DashboardService struct {
	dataset    *Dataset
	continents models.ContinentMap
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(dataset *Dataset, continents models.ContinentMap, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	return &DashboardService{
		dataset:    dataset,
		continents: continents,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// Dataset returns the dataset the service reads from
func (s *DashboardService) Dataset() *Dataset {
	return s.dataset
}

// Dates lists the selectable dates
func (s *DashboardService) Dates() DateRange {
	return DateRange{
		Dates:    s.dataset.Dates(),
		Latest:   s.dataset.LatestIndex(),
		LoadedAt: s.dataset.LoadedAt(),
	}
}

// Resolve maps a selector to a date index and label
func (s *DashboardService) Resolve(sel DateSelector) (int, string, error) {
	switch {
	case sel.Date != "":
		idx, err := s.dataset.IndexOf(sel.Date)
		if err != nil {
			return 0, "", err
		}
		date, err := s.dataset.DateAt(idx)
		return idx, date, err
	case sel.Index != nil:
		date, err := s.dataset.DateAt(*sel.Index)
		return *sel.Index, date, err
	default:
		idx := s.dataset.LatestIndex()
		date, err := s.dataset.DateAt(idx)
		return idx, date, err
	}
}

// Snapshot builds the country rows for the selected date
func (s *DashboardService) Snapshot(ctx context.Context, sel DateSelector) (*SnapshotResult, error) {
	idx, date, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.SnapshotBuildDuration)
	rows, err := s.dataset.BuildSnapshot(date)
	duration := timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	s.metrics.SnapshotRows.Set(float64(len(rows)))
	s.logger.Debug(ctx, "[SNAPSHOT_BUILD] Snapshot built", logging.Fields{
		"date":        date,
		"index":       idx,
		"rows":        len(rows),
		"duration_us": duration.Microseconds(),
	})

	return &SnapshotResult{Index: idx, Date: date, Rows: rows}, nil
}

// Top returns the n countries ranking highest on metric for the selected date
func (s *DashboardService) Top(ctx context.Context, sel DateSelector, n int, metric models.Metric) (*SnapshotResult, error) {
	snapshot, err := s.Snapshot(ctx, sel)
	if err != nil {
		return nil, err
	}

	snapshot.Rows = models.TopN(snapshot.Rows, n, metric)
	snapshot.Metric = metric
	return snapshot, nil
}

// Totals returns the global summary cards for the selected date
func (s *DashboardService) Totals(ctx context.Context, sel DateSelector) (models.GlobalTotals, error) {
	snapshot, err := s.Snapshot(ctx, sel)
	if err != nil {
		return models.GlobalTotals{}, err
	}
	return models.ComputeGlobalTotals(snapshot.Date, snapshot.Rows), nil
}

// Treemap returns World > Continent > Country rows with a positive metric value
func (s *DashboardService) Treemap(ctx context.Context, sel DateSelector, metric models.Metric) (*TreemapResult, error) {
	snapshot, err := s.Snapshot(ctx, sel)
	if err != nil {
		return nil, err
	}

	rows := models.TreemapRows(models.AnnotateContinents(snapshot.Rows, s.continents), metric)
	return &TreemapResult{
		Index:  snapshot.Index,
		Date:   snapshot.Date,
		Metric: metric,
		Rows:   rows,
	}, nil
}

// GlobalSeries returns the worldwide totals for every date
func (s *DashboardService) GlobalSeries() []models.SeriesPoint {
	return s.dataset.BuildGlobalSeries()
}

// Countries lists the selectable countries alphabetically
func (s *DashboardService) Countries() []string {
	return s.dataset.Countries()
}

// CountrySeries returns the full series of one country
func (s *DashboardService) CountrySeries(country string) (models.CountrySeries, error) {
	return s.dataset.BuildCountrySeries(country)
}

// Compare returns the series of the requested countries in request order
func (s *DashboardService) Compare(countries []string) ([]models.CountrySeries, error) {
	if len(countries) == 0 {
		return nil, &models.ValidationError{
			Field:   "country",
			Message: "at least one country is required",
		}
	}
	return s.dataset.CompareCountries(countries), nil
}

// Continent returns the continent label of country
func (s *DashboardService) Continent(country string) string {
	return s.continents.Lookup(country)
}

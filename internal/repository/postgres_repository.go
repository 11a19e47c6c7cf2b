package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/database"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const (
	locationsTable = "series_locations"
	valuesTable    = "series_values"

	// DefaultImportBatchSize bounds the rows of one multi-row insert
	DefaultImportBatchSize = 1000
)

// PostgresSeriesRepository reads series tables from PostgreSQL and writes
// imported tables into it
type PostgresSeriesRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPostgresSeriesRepository creates a new PostgreSQL series repository
func NewPostgresSeriesRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PostgresSeriesRepository {
	return &PostgresSeriesRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// builder returns a squirrel builder using PostgreSQL placeholders
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// seriesValueRow is one (location, date) cell of a stored series
type seriesValueRow struct {
	LocationID int64     `db:"location_id"`
	Region     string    `db:"region"`
	Country    string    `db:"country"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	ObservedOn time.Time `db:"observed_on"`
	Value      float64   `db:"value"`
}

func (r *PostgresSeriesRepository) Describe(kind models.SeriesKind) string {
	return fmt.Sprintf("postgres:%s/%s", valuesTable, kind)
}

func selectSeriesQuery(kind models.SeriesKind) (string, []interface{}, error) {
	return builder().
		Select(
			"l.id AS location_id",
			"l.region",
			"l.country",
			"l.latitude",
			"l.longitude",
			"v.observed_on",
			"v.value",
		).
		From(locationsTable + " l").
		Join(valuesTable + " v ON v.location_id = l.id").
		Where(sq.Eq{"v.metric": string(kind)}).
		OrderBy("l.id", "v.observed_on").
		ToSql()
}

// FetchSeries loads every stored value of kind and pivots it into a table
func (r *PostgresSeriesRepository) FetchSeries(ctx context.Context, kind models.SeriesKind) (*models.RawSeriesTable, error) {
	query, args, err := selectSeriesQuery(kind)
	if err != nil {
		return nil, sourceError(kind, r.Describe(kind), &permanentError{err: fmt.Errorf("failed to build query: %w", err)})
	}

	var rows []seriesValueRow
	if err := r.db.SelectContext(ctx, "select_series", &rows, query, args...); err != nil {
		return nil, sourceError(kind, r.Describe(kind), fmt.Errorf("failed to select series: %w", err))
	}

	if len(rows) == 0 {
		return nil, sourceError(kind, r.Describe(kind), &permanentError{err: fmt.Errorf("no stored values")})
	}

	table := pivotSeriesRows(rows)

	r.logger.Debug(ctx, "[REPO_FETCH_SERIES] Series loaded from database", logging.Fields{
		"kind":    string(kind),
		"values":  len(rows),
		"rows":    len(table.Rows),
		"columns": len(table.Columns),
	})

	return table, nil
}

// pivotSeriesRows turns (location, date, value) rows into a row-per-location
// table. Locations keep their input order; dates are ascending. Missing
// cells are zero.
func pivotSeriesRows(rows []seriesValueRow) *models.RawSeriesTable {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, row := range rows {
		day := row.ObservedOn.UTC().Truncate(24 * time.Hour)
		if _, ok := seen[day]; !ok {
			seen[day] = struct{}{}
			dates = append(dates, day)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	dateIndex := make(map[time.Time]int, len(dates))
	columns := make([]string, len(dates))
	for i, day := range dates {
		dateIndex[day] = i
		columns[i] = day.Format(models.ColumnDateLayout)
	}

	table := &models.RawSeriesTable{Columns: columns}
	locationIndex := make(map[int64]int)
	for _, row := range rows {
		idx, ok := locationIndex[row.LocationID]
		if !ok {
			idx = len(table.Rows)
			locationIndex[row.LocationID] = idx
			table.Rows = append(table.Rows, models.RawSeriesRow{
				Region:    row.Region,
				Country:   row.Country,
				Latitude:  row.Latitude,
				Longitude: row.Longitude,
				Values:    make([]float64, len(columns)),
			})
		}
		table.Rows[idx].Values[dateIndex[row.ObservedOn.UTC().Truncate(24*time.Hour)]] = row.Value
	}

	return table
}

// ImportSeries upserts every location and dated value of table under kind
// in one transaction. Columns that are not dates are skipped. It returns the
// number of values written.
func (r *PostgresSeriesRepository) ImportSeries(ctx context.Context, kind models.SeriesKind, table *models.RawSeriesTable, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}

	columns, dates := datedColumns(table)
	if len(columns) == 0 {
		return 0, &models.ValidationError{
			Field:   "columns",
			Message: fmt.Sprintf("%s table has no date columns", kind),
		}
	}

	start := time.Now()
	defer r.db.ObserveQuery("import_series", start)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	batch := make([]valueRecord, 0, batchSize)
	written := 0
	for _, row := range table.Rows {
		var locationID int64
		locationID, err = upsertLocation(ctx, tx, row)
		if err != nil {
			return 0, err
		}

		for i, col := range columns {
			batch = append(batch, valueRecord{
				locationID: locationID,
				observedOn: dates[i],
				value:      row.Values[col],
			})
			if len(batch) == batchSize {
				if err = insertValues(ctx, tx, kind, batch); err != nil {
					return 0, err
				}
				r.metrics.ImportBatchSize.Observe(float64(len(batch)))
				written += len(batch)
				batch = batch[:0]
			}
		}
	}

	if len(batch) > 0 {
		if err = insertValues(ctx, tx, kind, batch); err != nil {
			return 0, err
		}
		r.metrics.ImportBatchSize.Observe(float64(len(batch)))
		written += len(batch)
	}

	if err = tx.Commit(); err != nil {
		r.metrics.RecordDBError("commit_error")
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.ImportRecordsTotal.Add(float64(written))
	r.logger.Info(ctx, "[REPO_IMPORT] Series imported", logging.Fields{
		"kind":        string(kind),
		"locations":   len(table.Rows),
		"values":      written,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return written, nil
}

type valueRecord struct {
	locationID int64
	observedOn time.Time
	value      float64
}

// datedColumns returns the positions of the parseable date columns and
// their dates
func datedColumns(table *models.RawSeriesTable) ([]int, []time.Time) {
	var positions []int
	var dates []time.Time
	for i, col := range table.Columns {
		day, err := models.ParseColumnDate(col)
		if err != nil {
			continue
		}
		positions = append(positions, i)
		dates = append(dates, day)
	}
	return positions, dates
}

func upsertLocation(ctx context.Context, tx *sqlx.Tx, row models.RawSeriesRow) (int64, error) {
	query, args, err := builder().
		Insert(locationsTable).
		Columns("region", "country", "latitude", "longitude").
		Values(row.Region, row.Country, row.Latitude, row.Longitude).
		Suffix("ON CONFLICT (region, country) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build location upsert: %w", err)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert location %s/%s: %w", row.Country, row.Region, err)
	}
	return id, nil
}

func insertValuesQuery(kind models.SeriesKind, batch []valueRecord) (string, []interface{}, error) {
	insert := builder().
		Insert(valuesTable).
		Columns("location_id", "metric", "observed_on", "value")
	for _, rec := range batch {
		insert = insert.Values(rec.locationID, string(kind), rec.observedOn, rec.value)
	}
	return insert.
		Suffix("ON CONFLICT (location_id, metric, observed_on) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
}

func insertValues(ctx context.Context, tx *sqlx.Tx, kind models.SeriesKind, batch []valueRecord) error {
	query, args, err := insertValuesQuery(kind, batch)
	if err != nil {
		return fmt.Errorf("failed to build value insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %d values: %w", len(batch), err)
	}
	return nil
}

// HealthCheck verifies the database is reachable
func (r *PostgresSeriesRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

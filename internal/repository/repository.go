package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"pandemic-dashboard/internal/models"
)

// SeriesRepository provides access to the three cumulative series tables
type SeriesRepository interface {
	// FetchSeries returns the full table for kind, before any cutoff.
	// Failures are reported as *models.DataSourceError.
	FetchSeries(ctx context.Context, kind models.SeriesKind) (*models.RawSeriesTable, error)

	// Describe names the location kind is read from, for logs and errors
	Describe(kind models.SeriesKind) string
}

// StatusError reports a non-200 response from an HTTP source
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// IsTransient reports whether the server may answer differently on retry
func (e *StatusError) IsTransient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// permanentError marks a failure a retry cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (e *permanentError) IsTransient() bool { return false }

// readSeriesCSV decodes a whole CSSE table from r
func readSeriesCSV(r io.Reader) (*models.RawSeriesTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &permanentError{err: fmt.Errorf("failed to read csv: %w", err)}
	}

	table, err := models.ParseRawSeriesTable(records)
	if err != nil {
		return nil, &permanentError{err: err}
	}

	return table, nil
}

func sourceError(kind models.SeriesKind, source string, err error) error {
	return &models.DataSourceError{
		Kind:   kind,
		Source: source,
		Err:    err,
	}
}

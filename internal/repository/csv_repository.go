package repository

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/logging"
)

// HTTPSeriesRepository downloads CSSE tables over HTTP
type HTTPSeriesRepository struct {
	client *http.Client
	urls   map[models.SeriesKind]string
	logger *logging.StructuredLogger
}

// NewHTTPSeriesRepository creates a repository reading urls keyed by series kind
func NewHTTPSeriesRepository(urls map[models.SeriesKind]string, timeout time.Duration, logger *logging.StructuredLogger) *HTTPSeriesRepository {
	return &HTTPSeriesRepository{
		client: &http.Client{Timeout: timeout},
		urls:   urls,
		logger: logger,
	}
}

func (r *HTTPSeriesRepository) Describe(kind models.SeriesKind) string {
	return r.urls[kind]
}

// FetchSeries downloads and parses the table for kind
func (r *HTTPSeriesRepository) FetchSeries(ctx context.Context, kind models.SeriesKind) (*models.RawSeriesTable, error) {
	url, ok := r.urls[kind]
	if !ok || url == "" {
		return nil, sourceError(kind, "", &permanentError{err: fmt.Errorf("no url configured")})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sourceError(kind, url, &permanentError{err: fmt.Errorf("failed to build request: %w", err)})
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, sourceError(kind, url, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sourceError(kind, url, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	table, err := readSeriesCSV(resp.Body)
	if err != nil {
		return nil, sourceError(kind, url, err)
	}

	r.logger.Debug(ctx, "[SOURCE_FETCH] Series downloaded", logging.Fields{
		"kind":    string(kind),
		"url":     url,
		"rows":    len(table.Rows),
		"columns": len(table.Columns),
	})

	return table, nil
}

// FileSeriesRepository reads CSSE tables from local files
type FileSeriesRepository struct {
	paths  map[models.SeriesKind]string
	logger *logging.StructuredLogger
}

// NewFileSeriesRepository creates a repository reading paths keyed by series kind
func NewFileSeriesRepository(paths map[models.SeriesKind]string, logger *logging.StructuredLogger) *FileSeriesRepository {
	return &FileSeriesRepository{
		paths:  paths,
		logger: logger,
	}
}

func (r *FileSeriesRepository) Describe(kind models.SeriesKind) string {
	return r.paths[kind]
}

// FetchSeries reads and parses the table for kind
func (r *FileSeriesRepository) FetchSeries(ctx context.Context, kind models.SeriesKind) (*models.RawSeriesTable, error) {
	path, ok := r.paths[kind]
	if !ok || path == "" {
		return nil, sourceError(kind, "", &permanentError{err: fmt.Errorf("no path configured")})
	}

	if err := ctx.Err(); err != nil {
		return nil, sourceError(kind, path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, sourceError(kind, path, &permanentError{err: fmt.Errorf("failed to open file: %w", err)})
	}
	defer f.Close()

	table, err := readSeriesCSV(f)
	if err != nil {
		return nil, sourceError(kind, path, err)
	}

	r.logger.Debug(ctx, "[SOURCE_READ] Series file read", logging.Fields{
		"kind": string(kind),
		"path": path,
		"rows": len(table.Rows),
	})

	return table, nil
}

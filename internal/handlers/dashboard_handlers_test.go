package handlers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/services"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const header = "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n"

func parseTable(t *testing.T, body string) *models.RawSeriesTable {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(header + body)).ReadAll()
	require.NoError(t, err)
	table, err := models.ParseRawSeriesTable(records)
	require.NoError(t, err)
	return table
}

func newTestRouter(t *testing.T) (*mux.Router, *metrics.Collector) {
	t.Helper()

	dataset, err := services.NewDataset(
		parseTable(t, ",Alpha,10,20,1,10\n,\"Korea, South\",35.9,127.8,2,20\n"),
		parseTable(t, ",Alpha,10,20,0,1\n,\"Korea, South\",35.9,127.8,0,2\n"),
		parseTable(t, ",Alpha,10,20,0,2\n,\"Korea, South\",35.9,127.8,1,3\n"),
	)
	require.NoError(t, err)

	logger := logging.NewStructuredLoggerWithOutput(io.Discard, "test", "test", logging.ErrorLevel)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	service := services.NewDashboardService(dataset, models.DefaultContinents(), logger, collector)

	router := mux.NewRouter()
	NewDashboardHandler(service, logger, collector).RegisterRoutes(router)
	return router, collector
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSnapshotEndpoints(t *testing.T) {
	router, collector := newTestRouter(t)

	t.Run("dates", func(t *testing.T) {
		rec := get(t, router, "/api/dates")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		dates := decode[services.DateRange](t, rec)
		assert.Equal(t, []string{"1/22/20", "1/23/20"}, dates.Dates)
		assert.Equal(t, 1, dates.Latest)
	})

	t.Run("snapshot defaults to the latest date", func(t *testing.T) {
		rec := get(t, router, "/api/snapshot")
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[services.SnapshotResult](t, rec)
		assert.Equal(t, 1, result.Index)
		assert.Equal(t, "1/23/20", result.Date)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "Alpha", result.Rows[0].Country)
		assert.Equal(t, 7.0, result.Rows[0].Active)
	})

	t.Run("snapshot by index and date", func(t *testing.T) {
		result := decode[services.SnapshotResult](t, get(t, router, "/api/snapshot?index=0"))
		assert.Equal(t, "1/22/20", result.Date)

		result = decode[services.SnapshotResult](t, get(t, router, "/api/snapshot?date=1/23/20&index=0"))
		assert.Equal(t, 1, result.Index)
	})

	t.Run("bad selectors are rejected", func(t *testing.T) {
		for _, target := range []string{
			"/api/snapshot?index=5",
			"/api/snapshot?index=-1",
			"/api/snapshot?index=latest",
			"/api/snapshot?date=2/2/20",
			"/api/snapshot?date=tomorrow",
		} {
			rec := get(t, router, target)
			require.Equal(t, http.StatusBadRequest, rec.Code, target)

			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, "Bad Request", body.Error, target)
			assert.Equal(t, http.StatusBadRequest, body.Code, target)
			assert.NotEmpty(t, body.Message, target)
		}

		assert.Equal(t, 5.0, testutil.ToFloat64(collector.APIRequestsTotal.WithLabelValues("/api/snapshot", "GET", "400")))
		assert.Equal(t, 3.0, testutil.ToFloat64(collector.APIErrorsTotal.WithLabelValues("range_error", "/api/snapshot")))
	})

	t.Run("top", func(t *testing.T) {
		rec := get(t, router, "/api/snapshot/top?n=1&metric=deaths")
		require.Equal(t, http.StatusOK, rec.Code)

		result := decode[services.SnapshotResult](t, rec)
		assert.Equal(t, models.MetricDeaths, result.Metric)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "Korea, South", result.Rows[0].Country)

		result = decode[services.SnapshotResult](t, get(t, router, "/api/snapshot/top"))
		assert.Len(t, result.Rows, 2)
		assert.Equal(t, models.MetricConfirmed, result.Metric)

		assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/snapshot/top?n=-1").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/snapshot/top?n=ten").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/snapshot/top?metric=bogus").Code)
	})

	t.Run("totals", func(t *testing.T) {
		totals := decode[models.GlobalTotals](t, get(t, router, "/api/snapshot/totals"))
		assert.Equal(t, "1/23/20", totals.Date)
		assert.Equal(t, 30.0, totals.Confirmed)
		assert.Equal(t, 3.0, totals.Deaths)
		assert.Equal(t, 5.0, totals.Recovered)
		assert.Equal(t, 22.0, totals.Active)
	})

	t.Run("treemap", func(t *testing.T) {
		result := decode[services.TreemapResult](t, get(t, router, "/api/snapshot/treemap?metric=Deaths&index=0"))
		assert.Empty(t, result.Rows)

		result = decode[services.TreemapResult](t, get(t, router, "/api/snapshot/treemap"))
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "World", result.Rows[1].World)
		assert.Equal(t, "Asia", result.Rows[1].Continent)
		assert.Equal(t, "Korea, South", result.Rows[1].Country)
		assert.Equal(t, models.ContinentOther, result.Rows[0].Continent)
	})
}

func TestSeriesEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("global", func(t *testing.T) {
		series := decode[SeriesResponse](t, get(t, router, "/api/series/global"))
		require.Len(t, series.Points, 2)
		assert.Equal(t, 30.0, series.Points[1].Confirmed)
		assert.Equal(t, 22.0, series.Points[1].Active)
	})

	t.Run("countries", func(t *testing.T) {
		countries := decode[CountriesResponse](t, get(t, router, "/api/series/countries"))
		assert.Equal(t, []string{"Alpha", "Korea, South"}, countries.Countries)
	})

	t.Run("country", func(t *testing.T) {
		rec := get(t, router, "/api/series/countries/Korea,%20South")
		require.Equal(t, http.StatusOK, rec.Code)

		series := decode[models.CountrySeries](t, rec)
		assert.Equal(t, "Korea, South", series.Country)
		require.Len(t, series.Points, 2)
		assert.Equal(t, 20.0, series.Points[1].Confirmed)
	})

	t.Run("unknown country", func(t *testing.T) {
		rec := get(t, router, "/api/series/countries/Atlantis")
		require.Equal(t, http.StatusNotFound, rec.Code)

		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, http.StatusNotFound, body.Code)
		assert.Contains(t, body.Message, "Atlantis")
	})

	t.Run("compare", func(t *testing.T) {
		rec := get(t, router, "/api/series/compare?country=Korea,%20South&country=Atlantis&country=Alpha")
		require.Equal(t, http.StatusOK, rec.Code)

		compared := decode[CompareResponse](t, rec)
		require.Len(t, compared.Series, 2)
		assert.Equal(t, "Korea, South", compared.Series[0].Country)
		assert.Equal(t, "Alpha", compared.Series[1].Country)

		assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/series/compare").Code)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("health", func(t *testing.T) {
		rec := get(t, router, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, float64(2), body["dates"])
	})

	t.Run("request id", func(t *testing.T) {
		rec := get(t, router, "/health")
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})

	t.Run("openapi document", func(t *testing.T) {
		rec := get(t, router, "/api/docs/openapi.json")
		require.Equal(t, http.StatusOK, rec.Code)

		doc := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "3.0.0", doc["openapi"])
		paths, ok := doc["paths"].(map[string]interface{})
		require.True(t, ok)
		for _, path := range []string{
			"/api/dates",
			"/api/snapshot",
			"/api/snapshot/top",
			"/api/snapshot/totals",
			"/api/snapshot/treemap",
			"/api/series/global",
			"/api/series/countries",
			"/api/series/countries/{country}",
			"/api/series/compare",
		} {
			assert.Contains(t, paths, path)
		}
	})

	t.Run("swagger ui", func(t *testing.T) {
		rec := get(t, router, "/api/docs")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "swagger-ui")
	})

	t.Run("unsupported method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dates", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

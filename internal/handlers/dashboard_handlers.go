package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/internal/services"
	"pandemic-dashboard/pkg/logging"
	"pandemic-dashboard/pkg/metrics"
)

const (
	defaultTopN = 10
	maxTopN     = 500

	requestIDHeader = "X-Request-ID"
)

// DashboardHandler handles dashboard API endpoints
type DashboardHandler struct {
	service *services.DashboardService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	service *services.DashboardService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SeriesResponse wraps the global series
type SeriesResponse struct {
	Points []models.SeriesPoint `json:"points"`
}

// CountriesResponse lists the selectable countries
type CountriesResponse struct {
	Countries []string `json:"countries"`
}

// CompareResponse holds the series of the compared countries
type CompareResponse struct {
	Series []models.CountrySeries `json:"series"`
}

// GetDates handles GET /api/dates
func (h *DashboardHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.service.Dates(), http.StatusOK)
}

// GetSnapshot handles GET /api/snapshot
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	result, err := h.service.Snapshot(r.Context(), sel)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// GetTop handles GET /api/snapshot/top
func (h *DashboardHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxTopN {
			h.sendServiceError(w, r, &models.ValidationError{
				Field:   "n",
				Value:   raw,
				Message: fmt.Sprintf("invalid n %q, expected an integer between 0 and %d", raw, maxTopN),
			})
			return
		}
	}

	metric, err := parseMetric(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	result, err := h.service.Top(r.Context(), sel, n, metric)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// GetTotals handles GET /api/snapshot/totals
func (h *DashboardHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	totals, err := h.service.Totals(r.Context(), sel)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, totals, http.StatusOK)
}

// GetTreemap handles GET /api/snapshot/treemap
func (h *DashboardHandler) GetTreemap(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	metric, err := parseMetric(r)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	result, err := h.service.Treemap(r.Context(), sel, metric)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// GetGlobalSeries handles GET /api/series/global
func (h *DashboardHandler) GetGlobalSeries(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, SeriesResponse{Points: h.service.GlobalSeries()}, http.StatusOK)
}

// GetCountries handles GET /api/series/countries
func (h *DashboardHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, CountriesResponse{Countries: h.service.Countries()}, http.StatusOK)
}

// GetCountrySeries handles GET /api/series/countries/{country}
func (h *DashboardHandler) GetCountrySeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.CountrySeries(mux.Vars(r)["country"])
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, series, http.StatusOK)
}

// GetCompare handles GET /api/series/compare
func (h *DashboardHandler) GetCompare(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.Compare(r.URL.Query()["country"])
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, CompareResponse{Series: series}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dates := h.service.Dates()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"dates":     len(dates.Dates),
		"loaded_at": dates.LoadedAt.Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// parseSelector reads the index and date query parameters
func parseSelector(r *http.Request) (services.DateSelector, error) {
	query := r.URL.Query()
	sel := services.DateSelector{Date: query.Get("date")}

	if raw := query.Get("index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return sel, &models.ValidationError{
				Field:   "index",
				Value:   raw,
				Message: fmt.Sprintf("invalid index %q, expected an integer", raw),
			}
		}
		sel.Index = &idx
	}

	return sel, nil
}

// parseMetric reads the metric query parameter, defaulting to Confirmed
func parseMetric(r *http.Request) (models.Metric, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return models.MetricConfirmed, nil
	}
	return models.ParseMetric(raw)
}

// statusFor maps a domain error to its HTTP status and metric label
func statusFor(err error) (int, string) {
	var (
		rangeErr      *models.RangeError
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
	)

	switch {
	case errors.As(err, &rangeErr):
		return http.StatusBadRequest, "range_error"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// sendServiceError logs err and writes the mapped error response
func (h *DashboardHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode, errorType := statusFor(err)
	endpoint := routeTemplate(r)

	h.metrics.RecordAPIError(errorType, endpoint)

	fields := logging.Fields{
		"endpoint": endpoint,
		"query":    r.URL.RawQuery,
		"status":   statusCode,
	}
	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", fields, err)
		message = "internal server error"
	} else {
		h.logger.Debug(r.Context(), "[API_BAD_REQUEST] Request rejected", fields)
	}

	h.sendError(w, message, statusCode)
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		h.logger.Error(context.Background(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{}, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error","message":"failed to encode response","code":500}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RequestMiddleware tags each request with an id and records its status and
// duration
func (h *DashboardHandler) RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(logging.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := routeTemplate(r)
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))

		h.logger.Debug(r.Context(), "[API_REQUEST] Request served", logging.Fields{
			"method":      r.Method,
			"endpoint":    endpoint,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
		})
	})
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.RequestMiddleware)

	router.HandleFunc("/api/dates", h.GetDates).Methods("GET")
	router.HandleFunc("/api/snapshot", h.GetSnapshot).Methods("GET")
	router.HandleFunc("/api/snapshot/top", h.GetTop).Methods("GET")
	router.HandleFunc("/api/snapshot/totals", h.GetTotals).Methods("GET")
	router.HandleFunc("/api/snapshot/treemap", h.GetTreemap).Methods("GET")
	router.HandleFunc("/api/series/global", h.GetGlobalSeries).Methods("GET")
	router.HandleFunc("/api/series/countries", h.GetCountries).Methods("GET")
	router.HandleFunc("/api/series/countries/{country}", h.GetCountrySeries).Methods("GET")
	router.HandleFunc("/api/series/compare", h.GetCompare).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

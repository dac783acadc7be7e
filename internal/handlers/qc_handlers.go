package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-qc/internal/models"
	"weather-qc/internal/repository"
	"weather-qc/internal/services"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

// QCHandler handles QC run API endpoints
type QCHandler struct {
	qualityService *services.QualityService
	runService     *services.RunService // nil when persistence is disabled
	maxUploadBytes int64
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewQCHandler creates a new QC handler
func NewQCHandler(
	qualityService *services.QualityService,
	runService *services.RunService,
	maxUploadBytes int64,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *QCHandler {
	return &QCHandler{
		qualityService: qualityService,
		runService:     runService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// CreateRun handles POST /api/qc/runs
// The request body is the raw data file.
func (h *QCHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/qc/runs")()

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	defer body.Close()

	result, err := h.qualityService.ProcessReader(ctx, source, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.metrics.RecordAPIError("payload_too_large", "/api/qc/runs")
			h.sendError(w, r, "request body too large", http.StatusRequestEntityTooLarge)
		case models.IsInputError(err):
			h.metrics.RecordAPIError("validation_error", "/api/qc/runs")
			h.sendError(w, r, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error(ctx, "[API_CREATE_RUN_ERROR] Failed to process upload", logging.Fields{
				"source": source,
			}, err)
			h.metrics.RecordAPIError("internal_error", "/api/qc/runs")
			h.sendError(w, r, "failed to process run", http.StatusInternalServerError)
		}
		return
	}

	// stored runs only; without persistence the lookup URL answers 503
	if h.runService != nil {
		w.Header().Set("Location", "/api/qc/runs/"+result.Run.ID)
	}
	h.metrics.RecordAPIRequest("/api/qc/runs", "POST", "201")
	h.sendJSON(w, result, http.StatusCreated)
}

// ListRuns handles GET /api/qc/runs
func (h *QCHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/qc/runs")()

	if !h.persistenceEnabled(w, r) {
		return
	}

	page, limit := parsePagination(r)
	runs, total, err := h.runService.ListRuns(ctx, limit, (page-1)*limit)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_RUNS_ERROR] Failed to list runs", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/qc/runs")
		h.sendError(w, r, "failed to retrieve runs", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/qc/runs", "GET", "200")
	h.sendJSON(w, paginate(runs, total, page, limit), http.StatusOK)
}

// GetRun handles GET /api/qc/runs/{id}
func (h *QCHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/qc/runs/{id}")()

	if !h.persistenceEnabled(w, r) {
		return
	}

	runID := mux.Vars(r)["id"]
	detail, err := h.runService.GetRun(ctx, runID)
	if err != nil {
		h.sendLookupError(w, r, "/api/qc/runs/{id}", runID, err)
		return
	}

	h.metrics.RecordAPIRequest("/api/qc/runs/{id}", "GET", "200")
	h.sendJSON(w, detail, http.StatusOK)
}

// GetRecords handles GET /api/qc/runs/{id}/records
func (h *QCHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/qc/runs/{id}/records")()

	if !h.persistenceEnabled(w, r) {
		return
	}

	runID := mux.Vars(r)["id"]
	page, limit := parsePagination(r)

	filter := repository.RecordFilter{
		RunID:  runID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		startDate, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid start_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.StartDate = &startDate
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		endDate, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid end_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.EndDate = &endDate
	}

	records, total, err := h.runService.GetRecords(ctx, filter)
	if err != nil {
		h.sendLookupError(w, r, "/api/qc/runs/{id}/records", runID, err)
		return
	}

	h.metrics.RecordAPIRequest("/api/qc/runs/{id}/records", "GET", "200")
	h.sendJSON(w, paginate(records, total, page, limit), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *QCHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "disabled",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if h.runService != nil {
		status["database"] = "up"
		if err := h.runService.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Database unhealthy", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// persistenceEnabled answers 503 when no repository is configured
func (h *QCHandler) persistenceEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.runService != nil {
		return true
	}
	h.sendError(w, r, "run storage is disabled", http.StatusServiceUnavailable)
	return false
}

func (h *QCHandler) sendLookupError(w http.ResponseWriter, r *http.Request, endpoint, runID string, err error) {
	if repository.IsNotFound(err) {
		h.sendError(w, r, "run not found: "+runID, http.StatusNotFound)
		return
	}

	h.logger.Error(r.Context(), "[API_LOOKUP_ERROR] Failed to load run", logging.Fields{
		"run_id":   runID,
		"endpoint": endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, "failed to retrieve run", http.StatusInternalServerError)
}

// observe times a request; call the returned func when the handler returns
func (h *QCHandler) observe(endpoint string) func() {
	startTime := time.Now()
	return func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}
}

// parsePagination reads page and limit with defaults 1 and 100, limit capped at 1000
func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := 100

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	return page, limit
}

func paginate(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// sendJSON sends a JSON response
func (h *QCHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *QCHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all QC API routes
func (h *QCHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/qc/runs", h.CreateRun).Methods("POST")
	router.HandleFunc("/api/qc/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/api/qc/runs/{id}", h.GetRun).Methods("GET")
	router.HandleFunc("/api/qc/runs/{id}/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc(openAPIPath, OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
}

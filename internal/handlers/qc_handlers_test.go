package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-qc/internal/models"
	"weather-qc/internal/repository"
	"weather-qc/internal/services"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

const uploadBody = `2020-01-01 -999 10 20 5
2020-01-02 40 -30 0 5
2020-01-03 10 5 15 5
2020-01-04 10 30 2 5
`

// memoryRepository keeps saved results in memory
type memoryRepository struct {
	results   map[string]*models.QCResult
	order     []string
	healthErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{results: map[string]*models.QCResult{}}
}

func (m *memoryRepository) SaveResult(ctx context.Context, result *models.QCResult) error {
	m.results[result.Run.ID] = result
	m.order = append(m.order, result.Run.ID)
	return nil
}

func (m *memoryRepository) GetRun(ctx context.Context, runID string) (*models.QCRun, error) {
	res, ok := m.results[runID]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "qc_run", ID: runID}
	}
	return &res.Run, nil
}

func (m *memoryRepository) ListRuns(ctx context.Context, limit, offset int) ([]*models.QCRun, int, error) {
	var runs []*models.QCRun
	for i := offset; i < len(m.order) && len(runs) < limit; i++ {
		runs = append(runs, &m.results[m.order[i]].Run)
	}
	return runs, len(m.order), nil
}

func (m *memoryRepository) GetLedger(ctx context.Context, runID string) (*models.DefectLedger, error) {
	res, ok := m.results[runID]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "qc_ledger", ID: runID}
	}
	return res.Ledger, nil
}

func (m *memoryRepository) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DailyRecord, int, error) {
	res := m.results[filter.RunID]
	var out []*models.DailyRecord
	for i := range res.After.Records {
		rec := &res.After.Records[i]
		if filter.StartDate != nil && rec.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && rec.Date.After(*filter.EndDate) {
			continue
		}
		out = append(out, rec)
	}
	total := len(out)
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memoryRepository) HealthCheck(ctx context.Context) error { return m.healthErr }

type saveExporter struct{ repo *memoryRepository }

func (e saveExporter) Name() string { return "repository" }

func (e saveExporter) Export(ctx context.Context, result *models.QCResult) error {
	return e.repo.SaveResult(ctx, result)
}

func newTestRouter(repo *memoryRepository) *mux.Router {
	logger := logging.NewNopLogger()
	collector := metrics.NewCollector("test")

	var exporters []services.ResultExporter
	var runs *services.RunService
	if repo != nil {
		exporters = append(exporters, saveExporter{repo: repo})
		runs = services.NewRunService(repo, logger, collector)
	}

	quality := services.NewQualityService(services.NewIngestionService(logger, collector), exporters, logger, collector)
	handler := NewQCHandler(quality, runs, 1<<20, logger, collector)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	repo := newMemoryRepository()
	router := newTestRouter(repo)

	rec := do(router, http.MethodPost, "/api/qc/runs?source=station.txt", uploadBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Run    models.QCRun `json:"run"`
		Ledger []struct {
			Label   string `json:"label"`
			MaxTemp int    `json:"max_temp"`
		} `json:"ledger"`
		Summaries []models.StageSummary `json:"summaries"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, "station.txt", body.Run.Source)
	assert.Equal(t, "/api/qc/runs/"+body.Run.ID, rec.Header().Get("Location"))
	require.Len(t, body.Ledger, 4)
	assert.Equal(t, "3. Swapped", body.Ledger[2].Label)
	assert.Equal(t, 2, body.Ledger[2].MaxTemp)
	assert.Len(t, body.Summaries, 5)
	assert.Contains(t, repo.results, body.Run.ID)
}

func TestCreateRun_InvalidInput(t *testing.T) {
	repo := newMemoryRepository()
	router := newTestRouter(repo)

	rec := do(router, http.MethodPost, "/api/qc/runs", "2020-01-01 1 2\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
	assert.Contains(t, errResp.Message, "line 1")
	assert.Empty(t, repo.results)
}

func TestCreateRun_TooLarge(t *testing.T) {
	router := newTestRouter(nil)
	big := strings.Repeat("2020-01-01 1 2 3 4\n", (1<<20)/10)

	rec := do(router, http.MethodPost, "/api/qc/runs", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetRun(t *testing.T) {
	repo := newMemoryRepository()
	router := newTestRouter(repo)

	created := do(router, http.MethodPost, "/api/qc/runs", uploadBody)
	require.Equal(t, http.StatusCreated, created.Code)
	location := created.Header().Get("Location")

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"existing run", location, http.StatusOK},
		{"unknown run", "/api/qc/runs/does-not-exist", http.StatusNotFound},
		{"records", location + "/records?start_date=2020-01-02&limit=2", http.StatusOK},
		{"records bad date", location + "/records?start_date=02/01/2020", http.StatusBadRequest},
		{"records unknown run", "/api/qc/runs/does-not-exist/records", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := do(router, http.MethodGet, location+"/records?start_date=2020-01-02&limit=2", "")
	var page struct {
		Data       []models.DailyRecord `json:"data"`
		Total      int                  `json:"total"`
		TotalPages int                  `json:"total_pages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Data[0].Date.Day())
}

func TestListRuns(t *testing.T) {
	repo := newMemoryRepository()
	router := newTestRouter(repo)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/qc/runs", uploadBody).Code)
	}

	rec := do(router, http.MethodGet, "/api/qc/runs?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page PaginatedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 1)
}

func TestRunEndpoints_PersistenceDisabled(t *testing.T) {
	router := newTestRouter(nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/qc/runs", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/qc/runs/x", "").Code)

	created := do(router, http.MethodPost, "/api/qc/runs", uploadBody)
	assert.Equal(t, http.StatusCreated, created.Code)
	assert.Empty(t, created.Header().Get("Location"))
}

func TestCreateRun_OverlongLine(t *testing.T) {
	router := newTestRouter(nil)
	body := "2020-01-01 " + strings.Repeat("9", 70*1024) + " 2 3 4\n"

	rec := do(router, http.MethodPost, "/api/qc/runs", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	repo := newMemoryRepository()
	router := newTestRouter(repo)

	rec := do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"up"`)

	repo.healthErr = errors.New("connection refused")
	rec = do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}

func TestOpenAPISpec(t *testing.T) {
	router := newTestRouter(nil)

	rec := do(router, http.MethodGet, "/api/docs/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	paths := doc["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/api/qc/runs")
	assert.Contains(t, paths, "/api/qc/runs/{id}/records")

	ui := do(router, http.MethodGet, "/api/docs", "")
	assert.Equal(t, http.StatusOK, ui.Code)
	assert.Contains(t, ui.Body.String(), `url: "/api/docs/openapi.json",`)
}

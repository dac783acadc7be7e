package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-qc/internal/models"
	"weather-qc/internal/repository"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

type fakeRepository struct {
	runs    map[string]*models.QCRun
	ledgers map[string]*models.DefectLedger
	records map[string][]*models.DailyRecord
	saved   []*models.QCResult
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		runs:    map[string]*models.QCRun{},
		ledgers: map[string]*models.DefectLedger{},
		records: map[string][]*models.DailyRecord{},
	}
}

func (r *fakeRepository) SaveResult(ctx context.Context, result *models.QCResult) error {
	r.saved = append(r.saved, result)
	run := result.Run
	r.runs[run.ID] = &run
	r.ledgers[run.ID] = result.Ledger
	for i := range result.After.Records {
		rec := result.After.Records[i]
		r.records[run.ID] = append(r.records[run.ID], &rec)
	}
	return nil
}

func (r *fakeRepository) GetRun(ctx context.Context, runID string) (*models.QCRun, error) {
	run, ok := r.runs[runID]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "qc_run", ID: runID}
	}
	return run, nil
}

func (r *fakeRepository) ListRuns(ctx context.Context, limit, offset int) ([]*models.QCRun, int, error) {
	out := make([]*models.QCRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, len(out), nil
}

func (r *fakeRepository) GetLedger(ctx context.Context, runID string) (*models.DefectLedger, error) {
	l, ok := r.ledgers[runID]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "qc_ledger", ID: runID}
	}
	return l, nil
}

func (r *fakeRepository) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DailyRecord, int, error) {
	recs := r.records[filter.RunID]
	return recs, len(recs), nil
}

func (r *fakeRepository) HealthCheck(ctx context.Context) error { return nil }

func TestRunService_GetRun(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newTestQuality()
	result, err := svc.Run(context.Background(), "a.txt", models.NewRecordTable([]models.DailyRecord{
		{Precipitation: models.Float(-999)},
	}))
	require.NoError(t, err)
	require.NoError(t, repo.SaveResult(context.Background(), result))

	runs := NewRunService(repo, logging.NewNopLogger(), metrics.NewCollector("test"))

	detail, err := runs.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", detail.Run.Source)
	assert.Equal(t, 1, detail.Ledger.Counts(models.CheckNoData)[models.FieldPrecip])

	_, err = runs.GetRun(context.Background(), "missing")
	assert.True(t, repository.IsNotFound(err))
}

func TestRunService_GetRecords_UnknownRun(t *testing.T) {
	runs := NewRunService(newFakeRepository(), logging.NewNopLogger(), metrics.NewCollector("test"))

	_, _, err := runs.GetRecords(context.Background(), repository.RecordFilter{RunID: "missing", Limit: 10})
	assert.True(t, repository.IsNotFound(err))
}

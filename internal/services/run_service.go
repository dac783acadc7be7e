package services

import (
	"context"
	"fmt"

	"weather-qc/internal/models"
	"weather-qc/internal/repository"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

// RunDetail is a stored run together with its defect ledger
type RunDetail struct {
	Run    *models.QCRun        `json:"run"`
	Ledger *models.DefectLedger `json:"ledger"`
}

// RunService handles read access to stored QC runs
type RunService struct {
	repo    repository.QCRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRunService creates a new run service
func NewRunService(repo repository.QCRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RunService {
	return &RunService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetRun retrieves a run and its ledger
func (s *RunService) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.repo.GetLedger(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	return &RunDetail{Run: run, Ledger: ledger}, nil
}

// ListRuns retrieves stored runs, newest first
func (s *RunService) ListRuns(ctx context.Context, limit, offset int) ([]*models.QCRun, int, error) {
	return s.repo.ListRuns(ctx, limit, offset)
}

// GetRecords retrieves the final records of a run with filtering
func (s *RunService) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.DailyRecord, int, error) {
	if _, err := s.repo.GetRun(ctx, filter.RunID); err != nil {
		return nil, 0, err
	}
	return s.repo.GetRecords(ctx, filter)
}

// HealthCheck checks the backing store
func (s *RunService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

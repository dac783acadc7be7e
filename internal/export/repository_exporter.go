package export

import (
	"context"

	"weather-qc/internal/models"
	"weather-qc/internal/repository"
)

// RepositoryExporter persists the run, its final records and its ledger
type RepositoryExporter struct {
	repo repository.QCRepository
}

// NewRepositoryExporter creates a new repository exporter
func NewRepositoryExporter(repo repository.QCRepository) *RepositoryExporter {
	return &RepositoryExporter{repo: repo}
}

// Name identifies the exporter in logs and metrics
func (e *RepositoryExporter) Name() string {
	return "repository"
}

// Export stores the result in a single transaction
func (e *RepositoryExporter) Export(ctx context.Context, result *models.QCResult) error {
	return e.repo.SaveResult(ctx, result)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"weather-qc/internal/models"
	"weather-qc/internal/qc"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
	"weather-qc/pkg/tracing"
)

// StageIngested names the summary taken before any check ran
const StageIngested = "0. Ingested"

// ResultExporter receives a finished QC result. Exporters only ever see
// results whose four checks all completed.
type ResultExporter interface {
	Name() string
	Export(ctx context.Context, result *models.QCResult) error
}

// QualityService drives the QC pipeline over one table at a time
type QualityService struct {
	ingestion *IngestionService
	exporters []ResultExporter
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	now       func() time.Time
}

// NewQualityService creates a new quality service
func NewQualityService(ingestion *IngestionService, exporters []ResultExporter, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *QualityService {
	return &QualityService{
		ingestion: ingestion,
		exporters: exporters,
		logger:    logger,
		metrics:   metricsCollector,
		tracer:    otel.Tracer(tracing.InstrumentationName),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run applies the four checks, in order, to a copy of table and returns the
// result with its own fresh ledger. The caller's table is not modified.
func (s *QualityService) Run(ctx context.Context, source string, table *models.RecordTable) (*models.QCResult, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithSource(ctx, source)

	ctx, span := s.tracer.Start(ctx, "qc.run", trace.WithAttributes(
		attribute.String("qc.run_id", runID),
		attribute.String("qc.source", source),
		attribute.Int("qc.records", table.Len()),
	))
	defer span.End()

	startedAt := s.now()
	timer := s.metrics.NewTimer(s.metrics.RunDuration)
	defer timer.ObserveDuration()

	s.logger.Info(ctx, "[QC_RUN_START] Starting quality control run", logging.Fields{
		"records": table.Len(),
	})

	result := &models.QCResult{
		Before: table.Clone(),
		After:  table.Clone(),
		Ledger: models.NewDefectLedger(),
	}
	result.Summaries = append(result.Summaries, qc.Describe(StageIngested, result.Before))

	for _, stage := range qc.Stages() {
		if err := s.runStage(ctx, stage, result); err != nil {
			s.metrics.RecordRun(models.RunStatusFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	result.Run = models.QCRun{
		ID:          runID,
		Source:      source,
		Status:      models.RunStatusCompleted,
		RecordCount: result.After.Len(),
		StartedAt:   startedAt,
		CompletedAt: s.now(),
	}
	if n := result.After.Len(); n > 0 {
		result.Run.FirstDate = result.After.Records[0].Date
		result.Run.LastDate = result.After.Records[n-1].Date
	}

	s.metrics.RecordRun(models.RunStatusCompleted)

	fields := logging.Fields{"records": result.After.Len()}
	for _, f := range models.AllFields {
		fields["altered_"+f.Key()] = result.Ledger.FieldTotal(f)
	}
	s.logger.Info(ctx, "[QC_RUN_COMPLETE] Quality control run completed", fields)

	return result, nil
}

func (s *QualityService) runStage(ctx context.Context, stage qc.Stage, result *models.QCResult) error {
	_, span := s.tracer.Start(ctx, "qc.stage", trace.WithAttributes(
		attribute.String("qc.check", stage.Check.Key()),
	))
	defer span.End()

	start := time.Now()
	if err := stage.Apply(result.After, result.Ledger); err != nil {
		s.logger.Error(ctx, "[QC_STAGE_ERROR] Check failed", logging.Fields{
			"check": stage.Check.Label(),
		}, err)
		return fmt.Errorf("qc stage %s: %w", stage.Check.Label(), err)
	}
	duration := time.Since(start)

	counts := result.Ledger.Counts(stage.Check)
	byField := make(map[string]int, models.NumFields)
	fields := logging.Fields{
		"check":       stage.Check.Label(),
		"duration_ms": duration.Milliseconds(),
	}
	for _, f := range models.AllFields {
		byField[f.Key()] = counts[f]
		fields[f.Key()] = counts[f]
		span.SetAttributes(attribute.Int("qc.count."+f.Key(), counts[f]))
	}

	s.metrics.RecordStage(stage.Check.Key(), duration, byField)
	s.logger.Info(ctx, "[QC_STAGE_COMPLETE] Check completed", fields)

	result.Summaries = append(result.Summaries, qc.Describe(stage.Check.Label(), result.After))
	return nil
}

// ProcessFile reads path, runs the checks and hands the result to every exporter
func (s *QualityService) ProcessFile(ctx context.Context, path string) (*models.QCResult, error) {
	table, err := s.ingestion.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", path, err)
	}
	return s.process(ctx, filepath.Base(path), table)
}

// ProcessReader is ProcessFile for an already open input
func (s *QualityService) ProcessReader(ctx context.Context, source string, r io.Reader) (*models.QCResult, error) {
	table, err := s.ingestion.ReadTable(ctx, source, r)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", source, err)
	}
	return s.process(ctx, source, table)
}

func (s *QualityService) process(ctx context.Context, source string, table *models.RecordTable) (*models.QCResult, error) {
	result, err := s.Run(ctx, source, table)
	if err != nil {
		return nil, err
	}
	if err := s.Export(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// Export runs every exporter in order. A failing exporter does not stop the
// others; all failures are returned joined.
func (s *QualityService) Export(ctx context.Context, result *models.QCResult) error {
	if result == nil || result.Ledger == nil || !result.Ledger.Complete() {
		return fmt.Errorf("refusing to export an unfinished run: %w", models.ErrLedgerOrder)
	}

	ctx = logging.WithRunID(ctx, result.Run.ID)

	var errs []error
	for _, exp := range s.exporters {
		if err := exp.Export(ctx, result); err != nil {
			s.metrics.RecordExport(exp.Name(), "failure")
			s.logger.Error(ctx, "[QC_EXPORT_ERROR] Exporter failed", logging.Fields{
				"exporter": exp.Name(),
			}, err)
			errs = append(errs, fmt.Errorf("%s exporter: %w", exp.Name(), err))
			continue
		}
		s.metrics.RecordExport(exp.Name(), "success")
		s.logger.Debug(ctx, "[QC_EXPORT] Exporter finished", logging.Fields{
			"exporter": exp.Name(),
		})
	}

	return errors.Join(errs...)
}

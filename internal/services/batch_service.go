package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"weather-qc/internal/models"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

// ErrNoInputFiles is returned when a batch directory holds no matching file
var ErrNoInputFiles = errors.New("no data files found")

// FileProcessor runs the full pipeline over one input file
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*models.QCResult, error)
}

// BatchService processes every data file of a directory
type BatchService struct {
	processor FileProcessor
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// BatchResult contains batch statistics
type BatchResult struct {
	TotalFiles     int
	SucceededFiles int
	FailedFiles    int
	TotalRecords   int
	RunIDs         []string
	Duration       time.Duration
	Errors         []string
}

// NewBatchService creates a new batch service
func NewBatchService(processor FileProcessor, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *BatchService {
	return &BatchService{
		processor: processor,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ProcessDirectory runs the pipeline for every file in dir matching pattern,
// at most workers at a time. A failing file is logged and counted; the other
// files still run. The returned error is only set when the batch itself
// could not run.
func (s *BatchService) ProcessDirectory(ctx context.Context, dir, pattern string, workers int) (*BatchResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[BATCH_START] Starting batch run", logging.Fields{
		"data_dir": dir,
		"pattern":  pattern,
		"workers":  workers,
		"stage":    "INITIALIZATION",
	})

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, dir)
	}
	sort.Strings(files)

	if workers < 1 {
		workers = 1
	}

	result := &BatchResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			qcResult, err := s.processor.ProcessFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()

			// an exporter failure still leaves a finished run
			if qcResult != nil {
				result.RunIDs = append(result.RunIDs, qcResult.Run.ID)
				result.TotalRecords += qcResult.After.Len()
			}

			if err != nil {
				result.FailedFiles++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				s.metrics.RecordBatchFile("failure")
				s.logger.Error(gctx, "[BATCH_FILE_ERROR] File processing failed", logging.Fields{
					"file_path": path,
					"stage":     "FILE_PROCESSING",
				}, err)
				return nil
			}

			result.SucceededFiles++
			s.metrics.RecordBatchFile("success")
			s.logger.Info(gctx, "[BATCH_FILE_SUCCESS] File processed", logging.Fields{
				"file_path": path,
				"run_id":    qcResult.Run.ID,
				"records":   qcResult.After.Len(),
			})
			return nil
		})
	}

	// Only context cancellation surfaces here
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("batch interrupted: %w", err)
	}

	result.Duration = time.Since(startTime)
	sort.Strings(result.RunIDs)
	sort.Strings(result.Errors)

	s.logger.Info(ctx, "[BATCH_COMPLETE] Batch run completed", logging.Fields{
		"total_files":      result.TotalFiles,
		"succeeded_files":  result.SucceededFiles,
		"failed_files":     result.FailedFiles,
		"total_records":    result.TotalRecords,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

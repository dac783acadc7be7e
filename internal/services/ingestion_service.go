package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"weather-qc/internal/models"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

// maxIngestProblems caps the line errors kept on an IngestError
const maxIngestProblems = 20

// maxLineBytes bounds a single input line; longer lines reject the input
const maxLineBytes = 64 * 1024

// IngestionService reads daily observation files into record tables
type IngestionService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ReadFile reads a data file. The file name is used as the table source.
func (s *IngestionService) ReadFile(ctx context.Context, path string) (*models.RecordTable, error) {
	file, err := os.Open(path)
	if err != nil {
		s.metrics.RecordIngestionError("open_error")
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.ReadTable(ctx, filepath.Base(path), file)
}

// ReadTable parses whitespace-delimited lines of the form
//
//	Date Precip MaxTemp MinTemp WindSpeed
//
// Blank lines and lines starting with '#' are skipped. Any malformed line,
// duplicate date or out-of-order date rejects the whole input.
func (s *IngestionService) ReadTable(ctx context.Context, source string, r io.Reader) (*models.RecordTable, error) {
	startTime := time.Now()

	s.logger.Debug(ctx, "[INGEST_START] Reading input table", logging.Fields{
		"source": source,
		"stage":  "PARSE",
	})

	ingestErr := &models.IngestError{Source: source}
	addProblem := func(errorType string, err error) {
		s.metrics.RecordIngestionError(errorType)
		if len(ingestErr.Problems) < maxIngestProblems {
			ingestErr.Problems = append(ingestErr.Problems, err)
			return
		}
		ingestErr.Truncated++
	}

	var (
		records  []models.DailyRecord
		lastDate time.Time
		lineNo   int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		raw, err := parseLine(lineNo, line)
		if err != nil {
			addProblem("parse_error", err)
			continue
		}

		record, err := raw.ToRecord()
		if err != nil {
			addProblem("conversion_error", err)
			continue
		}

		if len(records) > 0 && !record.Date.After(lastDate) {
			msg := "date is not after the previous row"
			if record.Date.Equal(lastDate) {
				msg = "duplicate date"
			}
			addProblem("order_error", &models.ValidationError{
				Line:    lineNo,
				Field:   "Date",
				Value:   raw.Date,
				Message: msg,
			})
			continue
		}

		records = append(records, *record)
		lastDate = record.Date
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.metrics.RecordIngestionError("parse_error")
			return nil, &models.ValidationError{
				Line:    lineNo + 1,
				Field:   "line",
				Message: fmt.Sprintf("line longer than %d bytes", maxLineBytes),
			}
		}
		s.metrics.RecordIngestionError("read_error")
		return nil, fmt.Errorf("error reading %s: %w", source, err)
	}

	if len(ingestErr.Problems) > 0 {
		s.logger.Warn(ctx, "[INGEST_REJECTED] Input table rejected", logging.Fields{
			"source":   source,
			"problems": len(ingestErr.Problems) + ingestErr.Truncated,
			"lines":    lineNo,
		})
		return nil, ingestErr
	}

	s.metrics.IngestionRecordsTotal.Add(float64(len(records)))

	s.logger.Info(ctx, "[INGEST_COMPLETE] Input table read", logging.Fields{
		"source":      source,
		"records":     len(records),
		"duration_ms": time.Since(startTime).Milliseconds(),
		"stage":       "COMPLETE",
	})

	return models.NewRecordTable(records), nil
}

// parseLine parses a single line of a data file
// Format: DATE PRECIP MAX_TEMP MIN_TEMP WIND_SPEED, separated by any whitespace
func parseLine(lineNo int, line string) (*models.RawDailyRecord, error) {
	parts := strings.Fields(line)
	if len(parts) != 1+models.NumFields {
		return nil, &models.ValidationError{
			Line:    lineNo,
			Field:   "line",
			Value:   line,
			Message: fmt.Sprintf("expected %d fields, got %d", 1+models.NumFields, len(parts)),
		}
	}

	var values [models.NumFields]float64
	for _, f := range models.AllFields {
		token := parts[1+int(f)]
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, &models.ValidationError{
				Line:    lineNo,
				Field:   f.String(),
				Value:   token,
				Message: "not a number",
			}
		}
		values[f] = v
	}

	return &models.RawDailyRecord{
		Line:      lineNo,
		Date:      parts[0],
		Precip:    values[models.FieldPrecip],
		MaxTemp:   values[models.FieldMaxTemp],
		MinTemp:   values[models.FieldMinTemp],
		WindSpeed: values[models.FieldWindSpeed],
	}, nil
}

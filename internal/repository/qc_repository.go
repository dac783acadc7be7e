package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weather-qc/internal/models"
	"weather-qc/pkg/database"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

// QCRepository provides data access for QC runs, their final records and
// their defect ledgers
type QCRepository interface {
	// Run operations
	SaveResult(ctx context.Context, result *models.QCResult) error
	GetRun(ctx context.Context, runID string) (*models.QCRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.QCRun, int, error)

	// Result detail operations
	GetLedger(ctx context.Context, runID string) (*models.DefectLedger, error)
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.DailyRecord, int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying the records of one run
type RecordFilter struct {
	RunID     string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ledgerRow is the stored form of one ledger row
type ledgerRow struct {
	CheckOrder int    `db:"check_order"`
	Label      string `db:"label"`
	Precip     int    `db:"precip"`
	MaxTemp    int    `db:"max_temp"`
	MinTemp    int    `db:"min_temp"`
	WindSpeed  int    `db:"wind_speed"`
}

// qcRepository implements QCRepository
type qcRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewQCRepository creates a new QC repository
func NewQCRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) QCRepository {
	return &qcRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SaveResult stores the run row, its final records and its ledger in a
// single transaction
func (r *qcRepository) SaveResult(ctx context.Context, result *models.QCResult) error {
	if result == nil || result.After == nil || result.Ledger == nil {
		return errors.New("incomplete QC result")
	}
	if !result.Ledger.Complete() {
		return fmt.Errorf("run %s: %w", result.Run.ID, models.ErrLedgerOrder)
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.DBQueryDuration.WithLabelValues("save_result").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_SAVE_RESULT] QC result stored", logging.Fields{
			"run_id":      result.Run.ID,
			"records":     result.After.Len(),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	// Begin transaction
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := result.Run
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO qc_runs (
			id, source, status, record_count,
			first_date, last_date, started_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		run.ID,
		run.Source,
		run.Status,
		run.RecordCount,
		run.FirstDate,
		run.LastDate,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		r.metrics.RecordDBError("insert_run_error")
		return fmt.Errorf("failed to insert run: %w", err)
	}

	// Prepare record statement
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO qc_records (
			run_id, obs_date, precip, max_temp, min_temp, wind_speed
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range result.After.Records {
		_, err := stmt.ExecContext(ctx,
			run.ID,
			rec.Date,
			rec.Precipitation,
			rec.MaxTemperature,
			rec.MinTemperature,
			rec.WindSpeed,
		)
		if err != nil {
			r.metrics.RecordDBError("insert_record_error")
			return fmt.Errorf("failed to insert record %s: %w", rec.Date.Format("2006-01-02"), err)
		}
	}

	for _, row := range result.Ledger.Rows() {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO qc_ledger (
				run_id, check_order, label, precip, max_temp, min_temp, wind_speed
			)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`),
			run.ID,
			int(row.Check)+1,
			row.Label,
			row.Counts[models.FieldPrecip],
			row.Counts[models.FieldMaxTemp],
			row.Counts[models.FieldMinTemp],
			row.Counts[models.FieldWindSpeed],
		)
		if err != nil {
			r.metrics.RecordDBError("insert_ledger_error")
			return fmt.Errorf("failed to insert ledger row %q: %w", row.Label, err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRun retrieves a QC run by ID
func (r *qcRepository) GetRun(ctx context.Context, runID string) (*models.QCRun, error) {
	query := `
		SELECT id, source, status, record_count,
		       first_date, last_date, started_at, completed_at
		FROM qc_runs
		WHERE id = ?
	`

	var run models.QCRun
	err := r.db.GetContext(ctx, "get_run", &run, query, runID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "qc_run",
			ID:       runID,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves QC runs, newest first, with pagination
func (r *qcRepository) ListRuns(ctx context.Context, limit, offset int) ([]*models.QCRun, int, error) {
	var totalCount int
	err := r.db.GetContext(ctx, "count_runs", &totalCount, `SELECT COUNT(*) FROM qc_runs`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	query := `
		SELECT id, source, status, record_count,
		       first_date, last_date, started_at, completed_at
		FROM qc_runs
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?
	`

	var runs []*models.QCRun
	err = r.db.SelectContext(ctx, "list_runs", &runs, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, totalCount, nil
}

// GetLedger rebuilds the defect ledger stored for a run
func (r *qcRepository) GetLedger(ctx context.Context, runID string) (*models.DefectLedger, error) {
	query := `
		SELECT check_order, label, precip, max_temp, min_temp, wind_speed
		FROM qc_ledger
		WHERE run_id = ?
		ORDER BY check_order
	`

	var rows []ledgerRow
	if err := r.db.SelectContext(ctx, "get_ledger", &rows, query, runID); err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}

	if len(rows) == 0 {
		return nil, &NotFoundError{
			Resource: "qc_ledger",
			ID:       runID,
		}
	}

	ledger := models.NewDefectLedger()
	for _, row := range rows {
		var counts models.FieldCounts
		counts[models.FieldPrecip] = row.Precip
		counts[models.FieldMaxTemp] = row.MaxTemp
		counts[models.FieldMinTemp] = row.MinTemp
		counts[models.FieldWindSpeed] = row.WindSpeed

		if err := ledger.Record(models.Check(row.CheckOrder-1), counts); err != nil {
			return nil, fmt.Errorf("stored ledger of run %s is inconsistent: %w", runID, err)
		}
	}

	return ledger, nil
}

// GetRecords retrieves the final records of a run with filtering and pagination
func (r *qcRepository) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.DailyRecord, int, error) {
	// Build query with filters
	query := `
		SELECT obs_date, precip, max_temp, min_temp, wind_speed
		FROM qc_records
		WHERE run_id = ?
	`
	args := []interface{}{filter.RunID}

	if filter.StartDate != nil {
		query += " AND obs_date >= ?"
		args = append(args, *filter.StartDate)
	}

	if filter.EndDate != nil {
		query += " AND obs_date <= ?"
		args = append(args, *filter.EndDate)
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_records", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY obs_date LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.DailyRecord
	err = r.db.SelectContext(ctx, "get_records", &records, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get records: %w", err)
	}

	return records, totalCount, nil
}

// HealthCheck performs a repository health check
func (r *qcRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

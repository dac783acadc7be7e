package models

import (
	"time"
)

// Run statuses
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// QCRun describes one execution of the QC pipeline over one input table
type QCRun struct {
	ID          string    `json:"id" db:"id"`
	Source      string    `json:"source" db:"source"`
	Status      string    `json:"status" db:"status"`
	RecordCount int       `json:"record_count" db:"record_count"`
	FirstDate   time.Time `json:"first_date" db:"first_date"`
	LastDate    time.Time `json:"last_date" db:"last_date"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// FieldSummary holds descriptive statistics of the present values of one field
// Mean/Std/quantiles are nil when the field has no present value
type FieldSummary struct {
	Field  string   `json:"field"`
	Count  int      `json:"count"`
	Absent int      `json:"absent"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Q25    *float64 `json:"q25,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Q75    *float64 `json:"q75,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// StageSummary is the table summary captured after one pipeline step
type StageSummary struct {
	Stage  string         `json:"stage"`
	Fields []FieldSummary `json:"fields"`
}

// QCResult is everything the pipeline driver hands to export collaborators.
// Before is the table as ingested, After the table once all checks ran.
type QCResult struct {
	Run       QCRun          `json:"run"`
	Before    *RecordTable   `json:"-"`
	After     *RecordTable   `json:"-"`
	Ledger    *DefectLedger  `json:"ledger"`
	Summaries []StageSummary `json:"summaries,omitempty"`
}

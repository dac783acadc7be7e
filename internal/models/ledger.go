package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Check identifies one QC stage. The numeric order is the pipeline order.
type Check int

const (
	CheckNoData Check = iota
	CheckGrossError
	CheckSwapped
	CheckRangeFail
)

// NumChecks is the number of QC stages
const NumChecks = 4

// AllChecks lists the checks in pipeline order
var AllChecks = [NumChecks]Check{CheckNoData, CheckGrossError, CheckSwapped, CheckRangeFail}

// Name returns the short check name
func (c Check) Name() string {
	switch c {
	case CheckNoData:
		return "No Data"
	case CheckGrossError:
		return "Gross Error"
	case CheckSwapped:
		return "Swapped"
	case CheckRangeFail:
		return "Range Fail"
	default:
		return "Unknown"
	}
}

// Label returns the ledger row label, e.g. "1. No Data"
func (c Check) Label() string {
	return fmt.Sprintf("%d. %s", int(c)+1, c.Name())
}

// Key returns the snake_case identifier used in logs and metrics
func (c Check) Key() string {
	switch c {
	case CheckNoData:
		return "no_data"
	case CheckGrossError:
		return "gross_error"
	case CheckSwapped:
		return "swapped"
	case CheckRangeFail:
		return "range_fail"
	default:
		return "unknown"
	}
}

// FieldCounts holds one count per field, indexed by Field
type FieldCounts [NumFields]int

// Total returns the sum over all fields
func (c FieldCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Sub returns c - o field by field
func (c FieldCounts) Sub(o FieldCounts) FieldCounts {
	var out FieldCounts
	for i := range c {
		out[i] = c[i] - o[i]
	}
	return out
}

// LedgerRow is one check's per-field tally
type LedgerRow struct {
	Check     Check
	Label     string
	Counts    FieldCounts
	Completed bool
}

// ErrLedgerOrder is returned when a check's row is recorded twice or before
// the rows of earlier checks
var ErrLedgerOrder = errors.New("defect ledger rows must be recorded once, in pipeline order")

// DefectLedger tallies, per check and per field, how many values each QC
// stage altered. Rows are reserved up front in pipeline order and each row is
// filled exactly once by its own stage.
type DefectLedger struct {
	rows [NumChecks]LedgerRow
}

// NewDefectLedger returns an all-zero ledger with one row reserved per check
func NewDefectLedger() *DefectLedger {
	l := &DefectLedger{}
	for _, c := range AllChecks {
		l.rows[c] = LedgerRow{Check: c, Label: c.Label()}
	}
	return l
}

// Record fills the row of check c. It fails with ErrLedgerOrder if the row
// was already recorded or an earlier check has not been recorded yet.
func (l *DefectLedger) Record(c Check, counts FieldCounts) error {
	if c < 0 || int(c) >= NumChecks {
		return fmt.Errorf("unknown check %d: %w", int(c), ErrLedgerOrder)
	}
	if l.rows[c].Completed {
		return fmt.Errorf("%s already recorded: %w", c.Label(), ErrLedgerOrder)
	}
	for prev := Check(0); prev < c; prev++ {
		if !l.rows[prev].Completed {
			return fmt.Errorf("%s recorded before %s: %w", c.Label(), prev.Label(), ErrLedgerOrder)
		}
	}

	l.rows[c].Counts = counts
	l.rows[c].Completed = true
	return nil
}

// Counts returns the tally of check c
func (l *DefectLedger) Counts(c Check) FieldCounts {
	return l.rows[c].Counts
}

// Completed reports whether check c has recorded its row
func (l *DefectLedger) Completed(c Check) bool {
	return l.rows[c].Completed
}

// Complete reports whether every check has recorded its row
func (l *DefectLedger) Complete() bool {
	for _, r := range l.rows {
		if !r.Completed {
			return false
		}
	}
	return true
}

// Rows returns a copy of the ledger rows in pipeline order
func (l *DefectLedger) Rows() []LedgerRow {
	out := make([]LedgerRow, NumChecks)
	copy(out, l.rows[:])
	return out
}

// AbsentTotal returns the values of field f the checks made absent. The
// Swapped row is left out: swapped values stay present.
func (l *DefectLedger) AbsentTotal(f Field) int {
	total := 0
	for _, r := range l.rows {
		if r.Check == CheckSwapped {
			continue
		}
		total += r.Counts[f]
	}
	return total
}

// FieldTotal returns the sum of all recorded check counts for field f
func (l *DefectLedger) FieldTotal(f Field) int {
	total := 0
	for _, r := range l.rows {
		total += r.Counts[f]
	}
	return total
}

// ledgerRowJSON is the wire form of a ledger row
type ledgerRowJSON struct {
	Label     string `json:"label"`
	Precip    int    `json:"precip"`
	MaxTemp   int    `json:"max_temp"`
	MinTemp   int    `json:"min_temp"`
	WindSpeed int    `json:"wind_speed"`
}

// MarshalJSON encodes the ledger as an ordered array of labelled rows
func (l *DefectLedger) MarshalJSON() ([]byte, error) {
	out := make([]ledgerRowJSON, 0, NumChecks)
	for _, r := range l.rows {
		out = append(out, ledgerRowJSON{
			Label:     r.Label,
			Precip:    r.Counts[FieldPrecip],
			MaxTemp:   r.Counts[FieldMaxTemp],
			MinTemp:   r.Counts[FieldMinTemp],
			WindSpeed: r.Counts[FieldWindSpeed],
		})
	}
	return json.Marshal(out)
}

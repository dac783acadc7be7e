package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"weather-qc/internal/models"
)

// DateLayout is the date format of the data file
const DateLayout = "2006-01-02"

// absentToken marks an absent value in text output. The ingestion reader
// reads it back as absent.
const absentToken = "NaN"

// WriteRecords writes one line per record, "date precip max min wind",
// space separated and without a header
func WriteRecords(w io.Writer, table *models.RecordTable) error {
	bw := bufio.NewWriter(w)
	for i := range table.Records {
		rec := &table.Records[i]
		cols := make([]string, 0, 1+models.NumFields)
		cols = append(cols, rec.Date.Format(DateLayout))
		for _, f := range models.AllFields {
			cols = append(cols, formatValue(rec.Value(f)))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cols, " ")); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return bw.Flush()
}

// WriteLedger writes the defect ledger as a tab separated table with a
// leading empty header cell and one line per check
func WriteLedger(w io.Writer, ledger *models.DefectLedger) error {
	bw := bufio.NewWriter(w)

	header := make([]string, 0, 1+models.NumFields)
	header = append(header, "")
	for _, f := range models.AllFields {
		header = append(header, f.String())
	}
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}

	for _, row := range ledger.Rows() {
		cols := make([]string, 0, 1+models.NumFields)
		cols = append(cols, row.Label)
		for _, f := range models.AllFields {
			cols = append(cols, strconv.Itoa(row.Counts[f]))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cols, "\t")); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	return bw.Flush()
}

// formatValue keeps at least one decimal so values read as floats ("10.0")
func formatValue(v *float64) string {
	if v == nil {
		return absentToken
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

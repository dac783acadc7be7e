package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"weather-qc/internal/models"
)

// Workbook sheet names
const (
	SheetData       = "Data"
	SheetLedger     = "Ledger"
	SheetComparison = "Comparison"
)

// WriteWorkbook renders the result as an xlsx workbook: the final table, the
// ledger, and a before/after comparison with one line chart per field
func WriteWorkbook(w io.Writer, result *models.QCResult) error {
	f, err := BuildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// BuildWorkbook builds the workbook in memory
func BuildWorkbook(result *models.QCResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	steps := []func(*excelize.File, *models.QCResult) error{
		writeDataSheet,
		writeLedgerSheet,
		writeComparisonSheet,
	}
	for _, step := range steps {
		if err := step(f, result); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeDataSheet(f *excelize.File, result *models.QCResult) error {
	header := []interface{}{"Date"}
	for _, field := range models.AllFields {
		header = append(header, field.String())
	}
	if err := f.SetSheetRow(SheetData, "A1", &header); err != nil {
		return fmt.Errorf("failed to write data header: %w", err)
	}

	for i := range result.After.Records {
		rec := &result.After.Records[i]
		row := []interface{}{rec.Date.Format(DateLayout)}
		for _, field := range models.AllFields {
			row = append(row, cellValue(rec.Value(field)))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetData, cell, &row); err != nil {
			return fmt.Errorf("failed to write data row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeLedgerSheet(f *excelize.File, result *models.QCResult) error {
	if _, err := f.NewSheet(SheetLedger); err != nil {
		return fmt.Errorf("failed to create ledger sheet: %w", err)
	}

	header := []interface{}{"Check"}
	for _, field := range models.AllFields {
		header = append(header, field.String())
	}
	if err := f.SetSheetRow(SheetLedger, "A1", &header); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}

	for i, r := range result.Ledger.Rows() {
		row := []interface{}{r.Label}
		for _, field := range models.AllFields {
			row = append(row, r.Counts[field])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetLedger, cell, &row); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	return nil
}

// writeComparisonSheet lays out Date then a Before/After column pair per
// field, and anchors one chart per field to the right of the table
func writeComparisonSheet(f *excelize.File, result *models.QCResult) error {
	if _, err := f.NewSheet(SheetComparison); err != nil {
		return fmt.Errorf("failed to create comparison sheet: %w", err)
	}

	header := []interface{}{"Date"}
	for _, field := range models.AllFields {
		header = append(header, field.String()+" before check", field.String()+" after check")
	}
	if err := f.SetSheetRow(SheetComparison, "A1", &header); err != nil {
		return fmt.Errorf("failed to write comparison header: %w", err)
	}

	n := result.After.Len()
	if result.Before.Len() != n {
		return fmt.Errorf("before table has %d rows, after table %d", result.Before.Len(), n)
	}

	for i := 0; i < n; i++ {
		before := &result.Before.Records[i]
		after := &result.After.Records[i]
		row := []interface{}{after.Date.Format(DateLayout)}
		for _, field := range models.AllFields {
			row = append(row, cellValue(before.Value(field)), cellValue(after.Value(field)))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetComparison, cell, &row); err != nil {
			return fmt.Errorf("failed to write comparison row %d: %w", i+1, err)
		}
	}

	if n == 0 {
		return nil
	}

	chartCol := 2 + 2*models.NumFields
	for i, field := range models.AllFields {
		anchor, err := excelize.CoordinatesToCellName(chartCol, 1+i*20)
		if err != nil {
			return err
		}
		if err := f.AddChart(SheetComparison, anchor, comparisonChart(field, n)); err != nil {
			return fmt.Errorf("failed to add %s chart: %w", field, err)
		}
	}
	return nil
}

func comparisonChart(field models.Field, n int) *excelize.Chart {
	beforeCol, _ := excelize.ColumnNumberToName(2 + 2*int(field))
	afterCol, _ := excelize.ColumnNumberToName(3 + 2*int(field))
	last := n + 1

	categories := fmt.Sprintf("%s!$A$2:$A$%d", SheetComparison, last)
	series := func(col string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", SheetComparison, col),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", SheetComparison, col, col, last),
		}
	}

	return &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			series(beforeCol),
			series(afterCol),
		},
		Title: []excelize.RichTextRun{
			{Text: fmt.Sprintf("%s Comparison for Before and After Check", field)},
		},
		Legend: excelize.ChartLegend{Position: "bottom"},
		YAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: fmt.Sprintf("%s (%s)", field, field.Unit())}},
		},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	}
}

// cellValue leaves absent values as empty cells
func cellValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

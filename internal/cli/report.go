package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"weather-qc/internal/models"
	"weather-qc/internal/services"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

const dateLayout = "2006-01-02"

func printRunHeader(w io.Writer, result *models.QCResult) {
	run := result.Run
	status := green(run.Status)
	if run.Status != models.RunStatusCompleted {
		status = red(run.Status)
	}

	fmt.Fprintf(w, "%s %s\n", bold("Run"), run.ID)
	fmt.Fprintf(w, "  source:  %s\n", run.Source)
	fmt.Fprintf(w, "  status:  %s\n", status)
	fmt.Fprintf(w, "  records: %d", run.RecordCount)
	if run.RecordCount > 0 {
		fmt.Fprintf(w, " (%s to %s)", run.FirstDate.Format(dateLayout), run.LastDate.Format(dateLayout))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

// printLedger writes the defect ledger as an aligned table, non-zero counts highlighted
func printLedger(w io.Writer, ledger *models.DefectLedger) {
	fmt.Fprintln(w, bold("Defect ledger"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range models.AllFields {
		fmt.Fprintf(tw, "\t%s", f)
	}
	fmt.Fprintln(tw)

	for _, row := range ledger.Rows() {
		fmt.Fprint(tw, row.Label)
		for _, f := range models.AllFields {
			fmt.Fprintf(tw, "\t%s", countCell(row.Counts[f]))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func countCell(n int) string {
	s := strconv.Itoa(n)
	if n == 0 {
		return s
	}
	return yellow(s)
}

// printSummaries writes count/absent/mean/min/max per field for every stage
func printSummaries(w io.Writer, summaries []models.StageSummary) {
	for _, stage := range summaries {
		fmt.Fprintln(w, bold(stage.Stage))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  field\tcount\tabsent\tmean\tmin\tmax")
		for _, fs := range stage.Fields {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\t%s\t%s\n",
				fs.Field, fs.Count, fs.Absent, stat(fs.Mean), stat(fs.Min), stat(fs.Max))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
}

func stat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func printBatch(w io.Writer, result *services.BatchResult) {
	status := green("ok")
	if result.FailedFiles > 0 {
		status = red(fmt.Sprintf("%d failed", result.FailedFiles))
	}

	fmt.Fprintf(w, "%s %d/%d files, %d records, %s (%s)\n",
		bold("Batch"), result.SucceededFiles, result.TotalFiles, result.TotalRecords,
		result.Duration.Round(time.Millisecond), status)

	for _, id := range result.RunIDs {
		fmt.Fprintf(w, "  %s %s\n", green("run"), id)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", red("error"), msg)
	}
}

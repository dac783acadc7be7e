package cli

import (
	"github.com/spf13/cobra"
)

func runCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run the four checks over one data file",
		Long: `Read a data file, run the checks and write the results.

The input holds one day per line: date precip max_temp min_temp wind_speed,
separated by whitespace, -999 marking missing values.

Outputs go to the output directory (Data_QC_Passed.txt, Error_Checked.txt and
the QC_Report.xlsx workbook by default), to S3 when storage is enabled and to
the database when persistence is enabled.

Examples:
  weatherqc run DataQualityChecking.txt
  weatherqc run station.txt --output-dir out --no-workbook
  weatherqc run station.txt --persist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			quality, err := a.qualityService(ctx, exporterSet{files: true})
			if err != nil {
				return err
			}

			result, err := quality.ProcessFile(ctx, args[0])
			if result != nil {
				out := cmd.OutOrStdout()
				printRunHeader(out, result)
				printSummaries(out, result.Summaries)
				printLedger(out, result.Ledger)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for output files (overrides config)")
	cmd.Flags().BoolVar(&opts.noWorkbook, "no-workbook", false, "skip the xlsx workbook")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store the run in the database")

	return cmd
}

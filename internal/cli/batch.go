package cli

import (
	"github.com/spf13/cobra"

	"weather-qc/internal/services"
)

func batchCmd(opts *rootOptions) *cobra.Command {
	var pattern string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Run the checks over every data file of a directory",
		Long: `Run the checks over every file of a directory matching a glob pattern.

Each file's outputs are written to <output-dir>/<file name without extension>/.
A rejected file is reported and the others still run.

Examples:
  weatherqc batch ./data
  weatherqc batch ./data --pattern '*.dat' --workers 8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			dir := a.cfg.Batch.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if pattern == "" {
				pattern = a.cfg.Batch.Pattern
			}
			if workers == 0 {
				workers = a.cfg.Batch.Workers
			}

			quality, err := a.qualityService(ctx, exporterSet{files: true, perSource: true})
			if err != nil {
				return err
			}

			batch := services.NewBatchService(quality, a.logger, a.metrics)
			result, err := batch.ProcessDirectory(ctx, dir, pattern, workers)
			if result != nil {
				printBatch(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "glob pattern of input files (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "files processed concurrently (overrides config)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for output files (overrides config)")
	cmd.Flags().BoolVar(&opts.noWorkbook, "no-workbook", false, "skip the xlsx workbooks")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store the runs in the database")

	return cmd
}

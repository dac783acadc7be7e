package cli

import (
	"io"

	"github.com/spf13/cobra"

	"weather-qc/internal/config"
)

// rootOptions holds persistent flags and per-command config overrides
type rootOptions struct {
	version    string
	configFile string
	logOutput  io.Writer

	outputDir  string
	noWorkbook bool
	persist    bool
}

// apply layers flag overrides over the loaded configuration
func (o *rootOptions) apply(cfg *config.Config) {
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.noWorkbook {
		cfg.Output.Workbook = false
	}
	if o.persist {
		cfg.Database.Enabled = true
	}
}

// NewRootCmd returns the weatherqc root command
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	rootCmd := &cobra.Command{
		Use:     "weatherqc",
		Short:   "Quality control for daily weather series",
		Version: version,
		Long: `weatherqc checks daily Precip / Max Temp / Min Temp / Wind Speed series.

Four checks run in order: No Data (-999 sentinel), Gross Error (physical
range), Swapped (max below min) and Range Fail (diurnal range above 25).
Every value a check removes or swaps is counted in a per-field defect ledger.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logOutput = cmd.ErrOrStderr()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default $"+config.ConfigFileEnv+")")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(batchCmd(opts))
	rootCmd.AddCommand(scheduleCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))

	return rootCmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"weather-qc/internal/services"
	"weather-qc/pkg/logging"
)

func scheduleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the batch on a cron schedule until interrupted",
		Long: `Run the directory batch once at startup and then on the configured cron
schedule (batch.schedule, standard five-field syntax) until SIGINT/SIGTERM.

Examples:
  weatherqc schedule
  WQC_BATCH_SCHEDULE='*/15 * * * *' weatherqc schedule --persist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			quality, err := a.qualityService(ctx, exporterSet{files: true, perSource: true})
			if err != nil {
				return err
			}
			batch := services.NewBatchService(quality, a.logger, a.metrics)

			job := func() {
				_, err := batch.ProcessDirectory(ctx, a.cfg.Batch.Dir, a.cfg.Batch.Pattern, a.cfg.Batch.Workers)
				switch {
				case errors.Is(err, services.ErrNoInputFiles):
					a.logger.Info(ctx, "[SCHEDULE_IDLE] No input files", logging.Fields{
						"data_dir": a.cfg.Batch.Dir,
					})
				case err != nil:
					a.logger.Error(ctx, "[SCHEDULE_ERROR] Scheduled batch failed", logging.Fields{}, err)
				}
			}

			scheduled := skipWhileRunning(a.logger, job)

			c := cron.New()
			if _, err := c.AddJob(a.cfg.Batch.Schedule, scheduled); err != nil {
				return err
			}

			// Run once on startup
			scheduled.Run()

			a.logger.Info(ctx, "[SCHEDULE_START] Batch scheduled", logging.Fields{
				"schedule": a.cfg.Batch.Schedule,
				"data_dir": a.cfg.Batch.Dir,
			})
			c.Start()

			<-ctx.Done()

			// Wait for a running batch to finish
			<-c.Stop().Done()
			a.logger.Info(context.Background(), "[SCHEDULE_STOP] Scheduler stopped", logging.Fields{})
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for output files (overrides config)")
	cmd.Flags().BoolVar(&opts.noWorkbook, "no-workbook", false, "skip the xlsx workbooks")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "store the runs in the database")

	return cmd
}

// skipWhileRunning wraps job so a tick arriving while the previous batch is
// still running is dropped instead of overlapping it
func skipWhileRunning(logger *logging.StructuredLogger, job func()) cron.Job {
	return cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: logger})).Then(cron.FuncJob(job))
}

// cronLogger routes cron's own messages to the structured logger
type cronLogger struct {
	logger *logging.StructuredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(context.Background(), "[SCHEDULE] "+msg, cronFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), "[SCHEDULE_ERROR] "+msg, cronFields(keysAndValues), err)
}

func cronFields(keysAndValues []interface{}) logging.Fields {
	fields := logging.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

package cli

import (
	"context"
	"fmt"
	"os"

	"weather-qc/internal/config"
	"weather-qc/internal/export"
	"weather-qc/internal/repository"
	"weather-qc/internal/services"
	"weather-qc/pkg/database"
	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
	"weather-qc/pkg/tracing"
)

// app holds the collaborators shared by every command
type app struct {
	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	db      *database.DB
	repo    repository.QCRepository
	tracing tracing.ShutdownFunc
}

// exporterSet selects the exporters a command wires into the quality service
type exporterSet struct {
	files     bool
	perSource bool
}

// newApp loads configuration and builds logging, metrics and tracing. The
// database is opened only when persistence is enabled.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	path := opts.configFile
	if path == "" {
		path = os.Getenv(config.ConfigFileEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewStructuredLogger(cfg.Logging.Service, opts.version, logging.ParseLevel(cfg.Logging.Level))
	if opts.logOutput != nil {
		logger.SetOutput(opts.logOutput)
	}
	metricsCollector := metrics.NewCollector("weather_qc")

	shutdown, err := tracing.Setup(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.Service,
		ServiceVersion: opts.version,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsCollector,
		tracing: shutdown,
	}

	if cfg.Database.Enabled {
		if err := a.openDatabase(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	return a, nil
}

func (a *app) databaseConfig() *database.Config {
	db := a.cfg.Database
	return &database.Config{
		Driver:          db.Driver,
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password,
		Database:        db.Name,
		SSLMode:         db.SSLMode,
		Path:            db.Path,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	}
}

func (a *app) openDatabase(ctx context.Context) error {
	db, err := database.Open(a.databaseConfig(), a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	// sqlite files are created on first use, so bring their schema up too
	if db.Driver() == database.DriverSQLite {
		if _, err := db.Migrate(ctx, database.MigrateUp); err != nil {
			return err
		}
	}

	a.repo = repository.NewQCRepository(db, a.logger, a.metrics)
	return nil
}

func (a *app) fileNames() export.FileNames {
	names := export.FileNames{
		Data:   a.cfg.Output.DataFile,
		Ledger: a.cfg.Output.LedgerFile,
	}
	if a.cfg.Output.Workbook {
		names.Workbook = a.cfg.Output.WorkbookFile
	}
	return names
}

// exporters builds the configured exporters in a fixed order: local files,
// S3, then the repository
func (a *app) exporters(ctx context.Context, set exporterSet) ([]services.ResultExporter, error) {
	var out []services.ResultExporter

	if set.files {
		fe := export.NewFileExporter(a.cfg.Output.Dir, a.fileNames(), a.logger)
		if set.perSource {
			fe.PerSource()
		}
		out = append(out, fe)
	}

	if a.cfg.Storage.Enabled {
		s3cfg := export.S3Config{
			Bucket:       a.cfg.Storage.Bucket,
			Prefix:       a.cfg.Storage.Prefix,
			Region:       a.cfg.Storage.Region,
			Endpoint:     a.cfg.Storage.Endpoint,
			UsePathStyle: a.cfg.Storage.UsePathStyle,
		}
		client, err := export.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, export.NewS3Exporter(client, s3cfg, a.fileNames(), a.logger))
	}

	if a.repo != nil {
		out = append(out, export.NewRepositoryExporter(a.repo))
	}

	return out, nil
}

func (a *app) qualityService(ctx context.Context, set exporterSet) (*services.QualityService, error) {
	exporters, err := a.exporters(ctx, set)
	if err != nil {
		return nil, err
	}
	ingestion := services.NewIngestionService(a.logger, a.metrics)
	return services.NewQualityService(ingestion, exporters, a.logger, a.metrics), nil
}

func (a *app) close(ctx context.Context) {
	if a.db != nil {
		a.db.Close()
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			a.logger.Warn(ctx, "[TRACING_SHUTDOWN] Failed to flush spans", logging.Fields{
				"error": err.Error(),
			})
		}
	}
}

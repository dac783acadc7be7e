package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable. Keys are
// WQC_<SECTION>_<FIELD>, e.g. WQC_SERVER_PORT or WQC_DATABASE_MAX_OPEN_CONNS.
// Leaf fields carry no envconfig tag so that no unprefixed fallback
// (PATH, USER, PORT...) leaks in from the process environment.
const EnvPrefix = "WQC"

// ConfigFileEnv names the variable holding an optional YAML config file path
const ConfigFileEnv = "WQC_CONFIG_FILE"

// Config represents the complete application configuration.
// QC thresholds are constants of package qc.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	Batch    BatchConfig    `yaml:"batch"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" split_words:"true" validate:"gt=0"`
}

// DatabaseConfig contains persistence configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Driver          string        `yaml:"driver" validate:"oneof=postgres sqlite3"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=0,max=65535"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode" split_words:"true"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	Service string `yaml:"service" validate:"required"`
}

// OutputConfig names the files written by the local exporters
type OutputConfig struct {
	Dir          string `yaml:"dir" validate:"required"`
	DataFile     string `yaml:"data_file" split_words:"true" validate:"required"`
	LedgerFile   string `yaml:"ledger_file" split_words:"true" validate:"required"`
	WorkbookFile string `yaml:"workbook_file" split_words:"true" validate:"required"`
	Workbook     bool   `yaml:"workbook"`
}

// StorageConfig contains S3 artifact upload configuration
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" split_words:"true"`
}

// BatchConfig contains directory batch and schedule configuration
type BatchConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Pattern  string `yaml:"pattern" validate:"required"`
	Workers  int    `yaml:"workers" validate:"min=1,max=64"`
	Schedule string `yaml:"schedule" validate:"required"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

// Default returns the configuration used when neither file nor env set a value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "weather_qc",
			SSLMode:         "disable",
			Path:            "data/weather_qc.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Service: "weather-qc",
		},
		Output: OutputConfig{
			Dir:          ".",
			DataFile:     "Data_QC_Passed.txt",
			LedgerFile:   "Error_Checked.txt",
			WorkbookFile: "QC_Report.xlsx",
			Workbook:     true,
		},
		Storage: StorageConfig{
			Prefix: "weather-qc",
			Region: "us-east-1",
		},
		Batch: BatchConfig{
			Dir:      "./data",
			Pattern:  "*.txt",
			Workers:  4,
			Schedule: "0 * * * *",
		},
		Tracing: TracingConfig{
			Service: "weather-qc",
		},
	}
}

// LoadConfig loads configuration from defaults, the optional YAML file named
// by WQC_CONFIG_FILE, then environment variables (env wins), and validates it.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(ConfigFileEnv))
}

// Load is LoadConfig with an explicit YAML file path; an empty path skips the file
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// No default tags: only variables that are actually set override
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints and the cross-field rules tags can't express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres":
			if c.Database.Host == "" || c.Database.Name == "" {
				return errors.New("database host and name are required for postgres")
			}
		case "sqlite3":
			if c.Database.Path == "" {
				return errors.New("database path is required for sqlite3")
			}
		}
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return errors.New("storage bucket is required when S3 upload is enabled")
	}

	return nil
}

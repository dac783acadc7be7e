package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Data_QC_Passed.txt", cfg.Output.DataFile)
	assert.Equal(t, "Error_Checked.txt", cfg.Output.LedgerFile)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: 9090
  read_timeout: 5s
database:
  enabled: true
  driver: sqlite3
  path: /tmp/qc.db
output:
  dir: /tmp/out
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("WQC_SERVER_PORT", "7070")
	t.Setenv("WQC_BATCH_WORKERS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "defaults survive a partial file")
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/tmp/qc.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"WQC_DATABASE_DRIVER": "mysql"}},
		{"bad log level", map[string]string{"WQC_LOGGING_LEVEL": "chatty"}},
		{"zero workers", map[string]string{"WQC_BATCH_WORKERS": "0"}},
		{"s3 without bucket", map[string]string{"WQC_STORAGE_ENABLED": "true"}},
		{"unparsable port", map[string]string{"WQC_SERVER_PORT": "eighty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_IgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("PORT", "1234")
	t.Setenv("USER", "someone")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "data/weather_qc.db", cfg.Database.Path)
}

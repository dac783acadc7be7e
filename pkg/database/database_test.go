package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-qc/pkg/logging"
	"weather-qc/pkg/metrics"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "postgres",
			cfg: Config{
				Driver:   DriverPostgres,
				Host:     "db",
				Port:     5432,
				User:     "qc",
				Password: "secret",
				Database: "weather_qc",
				SSLMode:  "disable",
			},
			want: "host=db port=5432 user=qc password=secret dbname=weather_qc sslmode=disable",
		},
		{
			name: "sqlite3",
			cfg:  Config{Driver: DriverSQLite, Path: "data/qc.db"},
			want: "file:data/qc.db?_foreign_keys=on&_busy_timeout=5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "mysql"}, logging.NewNopLogger(), metrics.NewCollector("test"))
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestDB_Rebind(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := New(sqlx.NewDb(db, DriverPostgres), &Config{Driver: DriverPostgres}, logging.NewNopLogger(), metrics.NewCollector("test"))
	assert.Equal(t, "SELECT * FROM qc_runs WHERE id = $1 AND status = $2", pg.Rebind("SELECT * FROM qc_runs WHERE id = ? AND status = ?"))

	lite := New(sqlx.NewDb(db, DriverSQLite), &Config{Driver: DriverSQLite}, logging.NewNopLogger(), metrics.NewCollector("test"))
	assert.Equal(t, "SELECT * FROM qc_runs WHERE id = ?", lite.Rebind("SELECT * FROM qc_runs WHERE id = ?"))
}

func TestDB_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := New(sqlx.NewDb(db, DriverPostgres), &Config{Driver: DriverPostgres}, logging.NewNopLogger(), metrics.NewCollector("test"))

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS qc_runs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_qc_runs_started_at")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS qc_records")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS qc_ledger")).WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := d.Migrate(context.Background(), MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/001_create_schema.up.sql"}, applied)

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS qc_ledger")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS qc_records")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP INDEX IF EXISTS idx_qc_runs_started_at")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS qc_runs")).WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = d.Migrate(context.Background(), MigrateDown)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = d.Migrate(context.Background(), "sideways")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
	assert.Empty(t, splitStatements(" \n"))
}

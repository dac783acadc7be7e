package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"weather-qc/pkg/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration directions
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies every embedded migration for direction. Up runs files in
// name order, down in reverse. Statements use IF [NOT] EXISTS so reruns are safe.
func (d *DB) Migrate(ctx context.Context, direction string) ([]string, error) {
	if direction != MigrateUp && direction != MigrateDown {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*."+direction+".sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	if direction == MigrateDown {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	applied := make([]string, 0, len(names))
	for _, name := range names {
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		for _, stmt := range splitStatements(string(content)) {
			if _, err := d.ExecContext(ctx, "migrate", stmt); err != nil {
				return applied, fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
		}

		d.logger.Info(ctx, "[DB_MIGRATE] Migration applied", logging.Fields{
			"migration": name,
			"direction": direction,
		})
		applied = append(applied, name)
	}

	return applied, nil
}

// splitStatements splits a migration file on ';'. The schema files hold no
// string literals or procedural bodies, so a plain split is enough.
func splitStatements(sql string) []string {
	var out []string
	for _, stmt := range strings.Split(sql, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

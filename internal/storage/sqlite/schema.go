package sqlite

import (
	"context"
	"fmt"
)

const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS samples (
		chart_id  TEXT    NOT NULL,
		series    TEXT    NOT NULL,
		ts_ms     INTEGER NOT NULL,
		value     REAL    NOT NULL,
		PRIMARY KEY (chart_id, series, ts_ms)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_chart_ts ON samples (chart_id, ts_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples (ts_ms)`,
}

// migrate creates the tables and records the schema version.
func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return nil
}

// SchemaVersion reports the version stored in the file.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Package results stores submitted jobs and the statistics their trials
// logged in a SQLite database at the root of a batch directory.
package results

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS jobs (
    batch TEXT NOT NULL,
    experiment TEXT NOT NULL,
    mode TEXT NOT NULL,          -- 'global' or 'local'
    grp TEXT NOT NULL,
    dir TEXT NOT NULL,
    job_name TEXT NOT NULL,
    job_id TEXT,                 -- empty for dry runs
    submitted_at TEXT NOT NULL,
    PRIMARY KEY (batch, dir)
);
CREATE INDEX IF NOT EXISTS idx_jobs_experiment ON jobs(experiment);

CREATE TABLE IF NOT EXISTS stats (
    dir TEXT NOT NULL,
    experiment TEXT NOT NULL,
    mode TEXT NOT NULL,
    grp TEXT NOT NULL,
    trial INTEGER NOT NULL,      -- run directory trial
    seed INTEGER,                -- seed of the logged trial
    name TEXT NOT NULL,
    value REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stats_dir ON stats(dir);
CREATE INDEX IF NOT EXISTS idx_stats_summary ON stats(experiment, mode, grp, name);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database and checks the
// version of an existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		// No schema_version table yet
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}
	if version > SchemaVersion {
		return fmt.Errorf("results database schema v%d is newer than supported v%d", version, SchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

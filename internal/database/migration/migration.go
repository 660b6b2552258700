package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelQuery reports whether the last table of the schema exists.
const sentinelQuery = "SELECT to_regclass('public.report_items') IS NOT NULL"

var steps = []migrationStep{
	{
		Name: "create_table_report_runs",
		SQL: `CREATE TABLE IF NOT EXISTS report_runs (
  id              UUID        PRIMARY KEY,
  report_date     TEXT        NOT NULL,
  timeout_seconds INTEGER     NOT NULL CHECK (timeout_seconds > 0),
  version         INTEGER     NOT NULL,
  file_name       TEXT        NOT NULL,
  storage_key     TEXT        NOT NULL DEFAULT '',
  total           INTEGER     NOT NULL CHECK (total >= 0),
  available       INTEGER     NOT NULL CHECK (available >= 0),
  invalid         INTEGER     NOT NULL CHECK (invalid >= 0),
  unavailable     INTEGER     NOT NULL CHECK (unavailable >= 0),
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_report_runs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_report_runs_created_at ON report_runs (created_at DESC);`,
	},
	{
		Name: "create_table_report_items",
		SQL: `CREATE TABLE IF NOT EXISTS report_items (
  run_id   UUID    NOT NULL REFERENCES report_runs (id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  endpoint TEXT    NOT NULL,
  status   TEXT    NOT NULL CHECK (status IN ('available', 'invalid', 'unavailable')),
  PRIMARY KEY (run_id, position)
);`,
	},
	{
		Name: "create_index_report_items_endpoint",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_report_items_endpoint ON report_items (endpoint);`,
	},
}

// EnsureMigrated creates the report schema unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	start := time.Now()
	log = log.With("component", "database")

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error("db_migration_failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip", "msg_detail", "schema already exists", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	log.Info("db_migration_start", "steps", len(steps))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"migration_step", step.Name,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug("db_migration_step", "migration_step", step.Name, "step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("db_migration_success", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

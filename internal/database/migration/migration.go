package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           BIGSERIAL   PRIMARY KEY,
  part_number  TEXT        NOT NULL CONSTRAINT uq_documents_part_number UNIQUE,
  file_name    TEXT        NOT NULL,
  storage_key  TEXT        NOT NULL,
  content_type TEXT        NOT NULL DEFAULT 'application/octet-stream',
  size         BIGINT      NOT NULL DEFAULT 0 CHECK (size >= 0),
  status       TEXT        NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'committed')),
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_status_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status_created_at ON documents (status, created_at);`,
	},
}

// EnsureMigrated creates the documents schema unless the table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.Error(err),
			zap.Duration("duration_ms", time.Since(start)),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip",
			zap.String("reason", "schema already exists"),
			zap.Duration("duration_ms", time.Since(start)),
		)
		return nil
	}

	// All steps share one transaction so a failed step never leaves a table
	// that the sentinel check would later accept as fully migrated.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration_ms", time.Since(start)))
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("step_duration_ms", time.Since(stepStart)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration_ms", time.Since(stepStart)),
		)
	}

	if err := tx.Commit(); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration_ms", time.Since(start)))
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info("db_migration_success", zap.Duration("duration_ms", time.Since(start)))
	return nil
}

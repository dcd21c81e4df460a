package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Dialect selects the SQL flavour of the migration steps.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type migrationStep struct {
	Name string
	SQL  string
}

var postgresSteps = []migrationStep{
	{
		Name: "create_table_signing_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS signing_sessions (
  id         TEXT        PRIMARY KEY,
  version    BIGINT      NOT NULL CHECK (version >= 1),
  state      JSONB       NOT NULL,
  completed  BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_signing_sessions_completed",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signing_sessions_completed ON signing_sessions (completed);`,
	},
	{
		Name: "create_table_signing_events",
		SQL: `CREATE TABLE IF NOT EXISTS signing_events (
  id            UUID        PRIMARY KEY,
  ts            TIMESTAMPTZ NOT NULL DEFAULT now(),
  session_id    TEXT        NOT NULL DEFAULT '',
  request_id    TEXT        NOT NULL DEFAULT '',
  original_file TEXT        NOT NULL DEFAULT '',
  signed_file   TEXT        NOT NULL DEFAULT '',
  signer_name   TEXT        NOT NULL DEFAULT '',
  signer_email  TEXT        NOT NULL DEFAULT '',
  department    TEXT        NOT NULL DEFAULT '',
  document_type TEXT        NOT NULL DEFAULT '',
  status        TEXT        NOT NULL,
  error         TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_signing_events_session_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signing_events_session_id ON signing_events (session_id, ts);`,
	},
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_signing_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS signing_sessions (
  id         TEXT    PRIMARY KEY,
  version    INTEGER NOT NULL CHECK (version >= 1),
  state      TEXT    NOT NULL,
  completed  INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);`,
	},
	{
		Name: "create_index_signing_sessions_completed",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signing_sessions_completed ON signing_sessions (completed);`,
	},
	{
		Name: "create_table_signing_events",
		SQL: `CREATE TABLE IF NOT EXISTS signing_events (
  id            TEXT    PRIMARY KEY,
  ts            INTEGER NOT NULL,
  session_id    TEXT    NOT NULL DEFAULT '',
  request_id    TEXT    NOT NULL DEFAULT '',
  original_file TEXT    NOT NULL DEFAULT '',
  signed_file   TEXT    NOT NULL DEFAULT '',
  signer_name   TEXT    NOT NULL DEFAULT '',
  signer_email  TEXT    NOT NULL DEFAULT '',
  department    TEXT    NOT NULL DEFAULT '',
  document_type TEXT    NOT NULL DEFAULT '',
  status        TEXT    NOT NULL,
  error         TEXT    NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_signing_events_session_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signing_events_session_id ON signing_events (session_id, ts);`,
	},
}

func (d Dialect) steps() ([]migrationStep, string, error) {
	switch d {
	case Postgres:
		return postgresSteps, "SELECT to_regclass('public.signing_sessions') IS NOT NULL", nil
	case SQLite:
		return sqliteSteps, "SELECT COUNT(1) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'signing_sessions'", nil
	default:
		return nil, "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// EnsureMigrated checks if the 'signing_sessions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect Dialect, log logrus.FieldLogger, dbHost string) error {
	start := time.Now()
	log = log.WithFields(logrus.Fields{
		"component": "database",
		"dialect":   string(dialect),
		"db_host":   dbHost,
	})

	steps, sentinel, err := dialect.steps()
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"event": "db_migration_check", "status": "starting"}).Info("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event":       "db_migration_failed",
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.WithFields(logrus.Fields{
			"event":       "db_migration_skip",
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("schema already exists, skipping migration")
		return nil
	}

	log.WithFields(logrus.Fields{"event": "db_migration_start", "status": "in_progress"}).Info("migrating schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			}).Error("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.WithFields(logrus.Fields{
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Info("migration step applied")
	}

	log.WithFields(logrus.Fields{
		"event":       "db_migration_success",
		"status":      "success",
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("schema migrated")

	return nil
}

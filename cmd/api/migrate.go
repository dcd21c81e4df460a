package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"signflow/internal/database"
	"signflow/internal/database/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the session and audit tables if they are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, dialect, host, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		return migration.EnsureMigrated(cmd.Context(), db, dialect, log, host)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// openStore connects to the configured session store.
func openStore() (*sql.DB, migration.Dialect, string, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, "", "", fmt.Errorf("open sqlite: %w", err)
		}
		return db, migration.SQLite, cfg.SQLite.Path, nil
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, "", "", fmt.Errorf("connect postgres: %w", err)
		}
		return db, migration.Postgres, cfg.Database.Host, nil
	}
}


package cmd

import (
	"database/sql"
	"fmt"

	"github.com/klaudly/klaudly/internal/config"
	"github.com/klaudly/klaudly/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd(cfg *config.Config) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, db.RunMigrations)
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cfg, db.MigrateDown)
		},
	})

	return migrateCmd
}

func withDB(cfg *config.Config, fn func(*sql.DB, string) error) error {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	return fn(database.DB, cfg.DBDriver)
}

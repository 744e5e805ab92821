package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fanloremedia/fanlore/internal/config"
	"github.com/fanloremedia/fanlore/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.NewGormDB(cfg.Database.ToPostgresConfig())
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			if err := database.RunMigrations(db); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	return cmd
}

package main

import (
	"fmt"

	"bilancio/internal/storage"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back SQLite schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			down, _ := cmd.Flags().GetBool("down")
			status, _ := cmd.Flags().GetBool("status")
			path := a.cfg.SQLiteDBPath

			switch {
			case status:
			case down:
				if err := storage.RollbackMigrations(path); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				a.logger.Info("Rolled back all migrations", "db_path", path)
			default:
				if err := storage.RunMigrations(path); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				a.logger.Info("Database migrations completed", "db_path", path)
			}

			version, dirty, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().Bool("down", false, "roll back every migration")
	cmd.Flags().Bool("status", false, "print the current version without changes")
	return cmd
}

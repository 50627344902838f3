package cmd

import (
	"context"
	"log/slog"

	"github.com/matrixise/guild-dashboard/internal/config"
	"github.com/matrixise/guild-dashboard/internal/logger"
	"github.com/matrixise/guild-dashboard/internal/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the treasury history schema",
	Long:  `Apply, roll back, or inspect the migrations of the treasury snapshot table.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withDatabase("Migration failed", func(ctx context.Context, dsn string) error {
		if err := storage.RunMigrations(ctx, dsn); err != nil {
			return err
		}
		slog.Info("Migrations applied successfully")
		return nil
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: withDatabase("Rollback failed", func(ctx context.Context, dsn string) error {
		if err := storage.MigrateDown(ctx, dsn); err != nil {
			return err
		}
		slog.Info("Migration rolled back successfully")
		return nil
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  withDatabase("Failed to get migration status", storage.MigrateStatus),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

// withDatabase resolves DATABASE_URL before running fn.
func withDatabase(failure string, fn func(ctx context.Context, dsn string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger.Setup(logLevel)

		dsn, err := config.RequireDatabaseURL()
		if err != nil {
			return err
		}

		if err := fn(cmd.Context(), dsn); err != nil {
			slog.Error(failure, "error", err)
			return err
		}
		return nil
	}
}

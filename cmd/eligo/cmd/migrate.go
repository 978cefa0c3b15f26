package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eligoproject/eligo/internal/core/db"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "show migration status instead of applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if migrateStatus {
		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, status := range statuses {
			state := "pending"
			if status.Applied {
				state = "applied"
				if status.AppliedAt != nil {
					state = fmt.Sprintf("applied %s (%dms)", status.AppliedAt.Format(time.RFC3339), status.ExecutionMs)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", status.ID, state)
		}
		return nil
	}

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migrations applied", zap.String("database_url", cfg.DatabaseURL))
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

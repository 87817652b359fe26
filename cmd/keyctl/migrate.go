package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"key-protection-service/internal/domain"
	"key-protection-service/internal/infra"
	"key-protection-service/internal/repository"
	"key-protection-service/internal/usecase"
	"key-protection-service/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long:  "Manage database migrations for the key protection service",
}

// newMigrationService はDATABASE_URLに接続し、組み込みのマイグレーションを扱うサービスを生成する。
func newMigrationService() (*usecase.MigrationService, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := infra.NewDB(dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return usecase.NewMigrationService(repository.NewMigrationRepository(db), migrations.FS), nil
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long:  "Apply all pending migrations to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newMigrationService()
		if err != nil {
			return err
		}

		appliedCount, err := svc.ApplyMigrations(context.Background())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		if appliedCount == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", appliedCount)
		}
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  "Show the status of all migrations (applied/pending)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newMigrationService()
		if err != nil {
			return err
		}

		list, err := svc.GetMigrationStatus(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return printMigrationStatus(cmd.OutOrStdout(), list)
	},
}

func printMigrationStatus(out io.Writer, list []*domain.Migration) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	fmt.Fprintln(w, "-------\t----\t------\t----------")

	for _, m := range list {
		appliedAt := "-"
		if m.AppliedAt != nil {
			appliedAt = m.AppliedAt.Format("2006-01-02 15:04:05")
		}

		status := "pending"
		if m.Status == domain.MigrationStatusApplied {
			status = "applied"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Version, m.Name, status, appliedAt)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

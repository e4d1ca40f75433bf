package admin

import (
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/logging"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, 0)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

// runMigrate applies pending migrations when steps is zero, otherwise rolls
// back that many.
func runMigrate(cmd *cobra.Command, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var status *database.MigrationStatus
	if steps == 0 {
		status, err = database.MigrateUp(cfg.DatabaseURL, logger)
	} else {
		status, err = database.MigrateDown(cfg.DatabaseURL, steps, logger)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case status.Version == 0:
		fmt.Fprintln(out, "No migrations applied")
	case status.Changed:
		fmt.Fprintf(out, "Schema at version %d\n", status.Version)
	default:
		fmt.Fprintf(out, "Schema up to date (version %d)\n", status.Version)
	}
	return nil
}

package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in sample documents",
		Long:  "Ingests the built-in sample corpus directly into the knowledge base.",
		RunE:  runSeed,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip database migrations before seeding")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.close()

	report := a.seed(ctx)
	fmt.Fprint(cmd.OutOrStdout(), report.Summary())

	if report.Total > 0 && report.Succeeded == 0 {
		return errors.New("no documents were stored")
	}
	return nil
}

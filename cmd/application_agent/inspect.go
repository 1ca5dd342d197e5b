package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/observability"
	"github.com/jonathan/application-assistant/internal/usage"
	"github.com/spf13/cobra"
)

var (
	inspectUserID string
	inspectEmail  string
)

var applicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List a user's stored applications",
	RunE:  runApplications,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show a user's quota decision",
	Long: `Run the usage check for a user exactly as GET /usage does. A user seen for
the first time gets a usage record, and a record from an earlier month is reset.`,
	RunE: runUsage,
}

func init() {
	for _, cmd := range []*cobra.Command{applicationsCmd, usageCmd} {
		cmd.Flags().StringVar(&inspectUserID, "user", "", "User ID (required)")
		_ = cmd.MarkFlagRequired("user")
		rootCmd.AddCommand(cmd)
	}
	usageCmd.Flags().StringVar(&inspectEmail, "email", "", "Email stored on a new usage record")
}

// openDatabase returns the configured storage. Memory storage would always
// be empty here, so a database is required.
func openDatabase(ctx context.Context, a *app) (storage, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or database_url config is required")
	}
	return a.openStorage(ctx)
}

func runApplications(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	return printApplications(ctx, cmd.OutOrStdout(), store, inspectUserID)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	gate := usage.NewGate(store, usage.WithLogger(a.logger))
	observability.NewPrinter(cmd.OutOrStdout()).PrintDecision(gate.CheckAllowed(ctx, inspectUserID, inspectEmail))
	return nil
}

func printApplications(ctx context.Context, out io.Writer, records db.RecordStore, ownerID string) error {
	list, err := records.QueryByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err := fmt.Fprintf(out, "No applications for %s\n", ownerID)
		return err
	}

	printer := observability.NewPrinter(out)
	for i := range list {
		printer.PrintRecord(&list[i])
	}
	return nil
}

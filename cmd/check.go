package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpop-24/vantageflow/internal/report"
)

// newCheckCmd creates the 'check' subcommand: a one-shot snapshot of a
// single URL, printed to stdout. Useful for trying the cascade against a
// new target before tracking it.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Fetch one snapshot for a URL and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckCommand,
	}
}

func runCheckCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	snap, err := appInstance.Pipeline.Builder.Snapshot(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.AuditSummary(args[0], snap))
	return nil
}

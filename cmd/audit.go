package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpop-24/vantageflow/internal/report"
)

// newAuditCmd creates the 'audit' subcommand: a synchronous live check
// of one tracked product and all of its competitors.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Live-check one tracked product and its competitors",
		RunE:  runAuditCommand,
	}
	cmd.Flags().String("product-id", "", "ID of the tracked product to audit")
	_ = cmd.MarkFlagRequired("product-id")
	return cmd
}

func runAuditCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	productID, _ := cmd.Flags().GetString("product-id")

	product, err := appInstance.Store.GetProduct(cmd.Context(), productID)
	if err != nil {
		return fmt.Errorf("lookup product %q: %w", productID, err)
	}

	out := cmd.OutOrStdout()
	snap, err := appInstance.Pipeline.Builder.Snapshot(cmd.Context(), product.URL)
	if err != nil {
		fmt.Fprintf(out, "%s: unreachable (%v)\n\n", product.Name, err)
	} else {
		if snap.Price != nil {
			if err := appInstance.Store.UpdateProductPrice(cmd.Context(), product.ID, *snap.Price); err != nil {
				fmt.Fprintf(out, "warning: could not record %s price: %v\n", product.Name, err)
			}
		}
		fmt.Fprintln(out, report.AuditSummary(product.Name, snap))
		fmt.Fprintln(out)
	}

	competitors, err := appInstance.Store.ListCompetitors(cmd.Context(), product.ID)
	if err != nil {
		return fmt.Errorf("list competitors: %w", err)
	}
	for _, competitor := range competitors {
		snap, err := appInstance.Pipeline.Builder.Snapshot(cmd.Context(), competitor.URL)
		if err != nil {
			fmt.Fprintf(out, "%s: unreachable (%v)\n\n", competitor.Name, err)
			continue
		}
		if snap.Price != nil {
			if err := appInstance.Store.UpdateCompetitor(cmd.Context(), competitor.ID, snap.Price, snap.FetchedAt); err != nil {
				fmt.Fprintf(out, "warning: could not record %s price: %v\n", competitor.Name, err)
			}
		}
		fmt.Fprintln(out, report.AuditSummary(competitor.Name, snap))
		fmt.Fprintln(out)
	}
	return nil
}

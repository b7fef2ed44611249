package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newWatchCmd creates the 'watch' subcommand: the scheduled monitoring
// loop that checks every tracked product and competitor on an interval.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the monitoring loop until interrupted",
		Long: `Runs check cycles on the configured interval: every tracked product
and its competitors are fetched, price changes are detected, and alerts
are dispatched. The loop survives failing cycles with a cool-down.`,
		RunE: runWatchCommand,
	}
	cmd.Flags().Bool("once", false, "run a single check cycle and exit")
	return cmd
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	once, _ := cmd.Flags().GetBool("once")
	if once {
		summary, err := appInstance.Coordinator.Run(ctx)
		if err != nil {
			return err
		}
		appInstance.Logger.Info("check cycle complete",
			zap.Int("products", summary.Products),
			zap.Int("competitors", summary.Competitors),
			zap.Int("changes", summary.Changes),
			zap.Int("alerts", summary.Alerts),
			zap.Int("failures", summary.Failures),
		)
		return nil
	}

	appInstance.Logger.Info("monitoring loop started",
		zap.Duration("interval", appInstance.Config.MonitorInterval()),
	)
	appInstance.Coordinator.Watch(ctx, appInstance.Config.MonitorInterval(), appInstance.Config.MonitorCoolDown())
	appInstance.Logger.Info("monitoring loop stopped")
	return nil
}

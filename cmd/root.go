// Package cmd defines the CLI commands for the vantageflow executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/app"
	"github.com/mpop-24/vantageflow/internal/config"
	"github.com/mpop-24/vantageflow/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can
// replace it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg, logging.L)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vantageflow",
		Short: "Competitor retail price monitoring.",
		Long: `vantageflow tracks competitor listings against your own products:
it fetches prices through a layered strategy cascade, detects changes,
and alerts your Slack channels when a competitor moves.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.InitLogger(cfg.Logging.Development)

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env-only)")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

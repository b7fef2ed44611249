package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newServeCmd creates the 'serve' subcommand: the Slack front-end plus
// health and metrics endpoints. The monitoring loop runs alongside it
// unless disabled.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Slack front-end and run the monitoring loop",
		RunE:  runServeCommand,
	}
	cmd.Flags().Bool("no-watch", false, "serve HTTP only, without the monitoring loop")
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	noWatch, _ := cmd.Flags().GetBool("no-watch")
	if !noWatch {
		go appInstance.Coordinator.Watch(ctx, appInstance.Config.MonitorInterval(), appInstance.Config.MonitorCoolDown())
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appInstance.Config.Server.Port),
		Handler:           appInstance.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appInstance.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	appInstance.Logger.Info("http server stopped")
	return nil
}

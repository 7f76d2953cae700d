// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/service"
)

// componentFactory builds the controller components. Tests substitute a
// factory that injects a scripted browser driver.
var componentFactory = service.NewComponentFactory()

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the browser controller HTTP API",
		Long: "Boots the playwright driver, launches the default browser profile and " +
			"serves the session and interaction endpoints until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			applyServeFlagOverrides(cmd, cfg)

			components, err := componentFactory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize controller components: %w", err)
			}
			defer components.Shutdown()

			return runHTTPServer(ctx, cfg, components.Handler, logger)
		},
	}

	serveCmd.Flags().String("host", "", "Listen host. (Overrides config/env)")
	serveCmd.Flags().IntP("port", "p", 0, "Listen port. (Overrides config/env)")
	serveCmd.Flags().Bool("install", false, "Download the pinned browser build before starting. (Overrides config/env)")

	return serveCmd
}

// applyServeFlagOverrides maps explicitly set serve flags onto the resolved
// config. Flags win over the config file and environment.
func applyServeFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.ServerCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.ServerCfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("install") {
		cfg.BrowserCfg.Install, _ = cmd.Flags().GetBool("install")
	}
}

// runHTTPServer serves the handler until the context is cancelled or the
// listener fails, then drains in-flight requests under the shutdown budget.
func runHTTPServer(ctx context.Context, cfg config.Interface, handler http.Handler, logger *zap.Logger) error {
	srv := service.NewHTTPServer(cfg.Server(), handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Controller listening.", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining HTTP server.")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown().GlobalTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Warn("HTTP server drain did not complete.", zap.Error(err))
	}
	return nil
}

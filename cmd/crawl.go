// File: cmd/crawl.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/service"
)

// newCrawlCmd creates and configures the `crawl` command.
func newCrawlCmd() *cobra.Command {
	crawlCmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawls a site through the controller and extracts product data",
		Long: "Walks the site breadth-first over a pool of controller sessions, captures " +
			"the rendered text of every same-site page and asks the configured model to " +
			"extract product records into a JSON file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			applyCrawlFlagOverrides(cmd, cfg)

			// Bare hostnames are accepted and upgraded; the crawler itself
			// requires an absolute URL.
			home := args[0]
			if !strings.HasPrefix(home, "http://") && !strings.HasPrefix(home, "https://") {
				home = "https://" + home
			}
			profile, _ := cmd.Flags().GetString("browser")

			logger.Info("Starting crawl.",
				zap.String("home", home),
				zap.String("browser", profile),
				zap.Int("depth", cfg.Crawler().MaxDepth),
				zap.Int("concurrency", cfg.Crawler().Concurrency),
			)

			c, err := service.InitializeCrawler(ctx, cfg, profile, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize crawler: %w", err)
			}

			if err := c.Run(ctx, home); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Crawl aborted gracefully.")
					return fmt.Errorf("crawl aborted by user signal")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nCrawl complete. Results written to %s\n", cfg.Crawler().OutputFile)
			return nil
		},
	}

	crawlCmd.Flags().String("browser", "default", "Browser profile to crawl with.")
	crawlCmd.Flags().String("controller", "", "Controller base URL. (Overrides config/env)")
	crawlCmd.Flags().IntP("depth", "d", 0, "Maximum crawl depth. (Overrides config/env)")
	crawlCmd.Flags().IntP("concurrency", "j", 0, "Number of concurrent sessions. (Overrides config/env)")
	crawlCmd.Flags().StringP("output", "o", "", "Output file for extracted records. (Overrides config/env)")

	return crawlCmd
}

// applyCrawlFlagOverrides maps explicitly set crawl flags onto the resolved
// config. Flags win over the config file and environment.
func applyCrawlFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("controller") {
		cfg.CrawlerCfg.ControllerURL, _ = cmd.Flags().GetString("controller")
	}
	if cmd.Flags().Changed("depth") {
		cfg.CrawlerCfg.MaxDepth, _ = cmd.Flags().GetInt("depth")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.CrawlerCfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("output") {
		cfg.CrawlerCfg.OutputFile, _ = cmd.Flags().GetString("output")
	}
}

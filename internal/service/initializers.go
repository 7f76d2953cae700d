// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/crawler"
)

// NewHTTPServer builds the controller's http.Server from the listener
// config. Zero-valued timeouts disable the corresponding limit, which the
// long-poll style endpoints (selectors with multi-minute waits) rely on.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// InitializeCrawler assembles the full crawl pipeline against a running
// controller: API client, LLM extractor, result sink, and the crawler that
// drives them. This centralizes crawl wiring for the 'crawl' command.
//
// The controller is pinged before anything else is built so a bad
// controller_url fails immediately instead of after session startup.
func InitializeCrawler(ctx context.Context, cfg config.Interface, profile string, logger *zap.Logger) (*crawler.Crawler, error) {
	client := crawler.NewClient(cfg.Crawler(), profile, logger)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("controller is not reachable at %s: %w", cfg.Crawler().ControllerURL, err)
	}

	extractor, err := crawler.NewExtractor(cfg.LLM(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM extractor: %w", err)
	}

	sink, err := crawler.NewSink(cfg.Crawler().OutputFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result sink: %w", err)
	}

	return crawler.New(cfg.Crawler(), client, extractor, sink, logger), nil
}

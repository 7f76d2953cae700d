// File: internal/service/components.go
package service

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

// Components holds the initialized services behind a running controller.
// This struct centralizes the lifecycle management of the browser core and
// the HTTP surface mounted on top of it.
type Components struct {
	Manager *browser.Manager
	Handler http.Handler
}

// Shutdown gracefully tears down the browser core. It runs on a fresh
// context so teardown still completes when the serve context is already
// cancelled; the manager applies its own configured deadlines.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.Manager != nil {
		if err := c.Manager.Shutdown(context.Background()); err != nil {
			logger.Warn("Error during browser manager shutdown.", zap.Error(err))
		} else {
			logger.Debug("Browser manager shut down.")
		}
	}

	logger.Info("All controller components shut down.")
}

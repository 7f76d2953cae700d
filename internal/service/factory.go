// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/server"
)

// ComponentFactory defines the interface for creating the set of components
// behind a running controller. This abstraction is the key to making the
// serve command's logic testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	// newDriver is a seam for tests, which substitute a scripted driver so
	// no real browser process is launched.
	newDriver func(install bool, logger *zap.Logger) browser.Driver
}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{
		newDriver: func(install bool, logger *zap.Logger) browser.Driver {
			return browser.NewPlaywrightDriver(install, logger)
		},
	}
}

// Create handles the full dependency injection and initialization of the
// controller components.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Ensure cleanup happens if initialization fails midway.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Browser driver.
	driver := f.newDriver(cfg.Browser().Install, logger)
	logger.Debug("Browser driver created.")

	// 2. Browser manager. Start boots the driver and launches the reserved
	// default profile; on failure it stops whatever it already started.
	manager := browser.NewManager(driver, cfg, logger)
	if err := manager.Start(ctx); err != nil {
		initializationErr = fmt.Errorf("failed to start browser manager: %w", err)
		return nil, initializationErr
	}
	components.Manager = manager
	logger.Debug("Browser manager initialized.")

	// 3. HTTP surface.
	components.Handler = server.New(cfg, logger, manager).Router()
	logger.Debug("HTTP routes mounted.")

	logger.Info("All controller components initialized successfully.")
	return components, nil
}

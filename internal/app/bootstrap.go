// Package app loads configuration and wires the long-lived objects used by
// the commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"gotest-mcp/internal/config"
	"gotest-mcp/pkg/logging"
)

// Application is a configured gotest-mcp instance.
type Application struct {
	config   config.Config
	services *Services
}

// NewApplication loads the layered configuration, applies flags, initializes
// logging to logOut and builds the services.
func NewApplication(flags *Config, logOut io.Writer) (*Application, error) {
	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load gotest-mcp configuration: %w", err)
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	if err := logging.Init(level, cfg.Logging.Format, logOut); err != nil {
		return nil, err
	}

	services, err := InitializeServices(cfg, flags.Version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	logging.Info("Bootstrap", "Serving tests under %s", services.Root)

	return &Application{config: cfg, services: services}, nil
}

// Config returns the resolved configuration.
func (a *Application) Config() config.Config { return a.config }

// Services returns the wired services.
func (a *Application) Services() *Services { return a.services }

// Serve runs the configured MCP transport until ctx is done or the client goes away.
func (a *Application) Serve(ctx context.Context) error {
	switch a.config.Server.Transport {
	case config.TransportStreamableHTTP:
		return runHTTP(ctx, a.config.Server, a.services)
	default:
		return runStdio(ctx, a.services, os.Stdin, os.Stdout)
	}
}

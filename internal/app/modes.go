package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gotest-mcp/internal/config"
	"gotest-mcp/internal/mcpserver"
	"gotest-mcp/pkg/logging"
)

func runStdio(ctx context.Context, services *Services, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.MCP.ServeStdio(ctx, in, out); err != nil {
		logging.Error("Serve", err, "stdio transport stopped")
		return err
	}
	logging.Info("Serve", "stdio transport closed")
	return nil
}

func runHTTP(ctx context.Context, cfg config.ServerConfig, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.NewHTTPServer(services.MCP, cfg)
	logging.Info("Serve", "Press Ctrl+C to stop")
	return srv.Start(ctx)
}

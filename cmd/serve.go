package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotest-mcp/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the discover-tests and execute-tests tools over MCP",
		Long: `Starts an MCP server for the Go project at --root.

Two transports are available:

  stdio            (default) a single client talks over stdin/stdout. Logs go to stderr.
  streamable-http  clients connect to http://<host>:<port><endpointPath>. A health
                   check is served at /healthz.

Configuration is read from ~/.config/gotest-mcp/config.yaml, then
.gotest-mcp/config.yaml in the working directory, then --config. Flags win.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, false, func(cfg *app.Config) {
				cfg.Transport = transport
				cfg.Host = host
				cfg.Port = port
			})
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "MCP transport: stdio or streamable-http")
	cmd.Flags().StringVar(&host, "host", "", "Listen host for streamable-http")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port for streamable-http")
	return cmd
}

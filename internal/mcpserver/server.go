// Package mcpserver exposes the service as an MCP server over stdio or the
// streamable HTTP transport.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"gotest-mcp/internal/service"
	"gotest-mcp/pkg/logging"
)

// ServerName is reported to clients during initialization.
const ServerName = "gotest-mcp"

// notifyFunc sends a server-to-client notification for the session in ctx.
type notifyFunc func(ctx context.Context, method string, params map[string]any) error

// Server registers the catalog tools on an mcp-go server and answers them
// through a service.Service.
type Server struct {
	svc    *service.Service
	mcp    *server.MCPServer
	notify notifyFunc
}

// NewServer builds the MCP server for svc. version is reported as the server version.
func NewServer(svc *service.Service, version string) *Server {
	s := &Server{
		svc:    svc,
		notify: notifyClient,
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	handlers := map[string]server.ToolHandlerFunc{
		"discover-tests": s.handleDiscoverTests,
		"execute-tests":  s.handleExecuteTests,
	}
	for _, tool := range s.svc.ListTools() {
		handler, ok := handlers[tool.Name]
		if !ok {
			logging.Warn("MCPServer", "No handler for tool %s, not registering it", tool.Name)
			continue
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(tool.Name, tool.Description, tool.InputSchema), handler)
		logging.Debug("MCPServer", "Registered tool %s", tool.Name)
	}
}

// ServeStdio serves a single client over in and out until ctx is done or the
// input is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	logging.Info("MCPServer", "Serving MCP over stdio for %s", s.svc.Root())
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func notifyClient(ctx context.Context, method string, params map[string]any) error {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return errors.New("no MCP server in context")
	}
	return srv.SendNotificationToClient(ctx, method, params)
}

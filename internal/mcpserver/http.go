package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"gotest-mcp/internal/config"
	"gotest-mcp/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer serves the MCP server over the streamable HTTP transport,
// together with a health endpoint.
type HTTPServer struct {
	mcp          *Server
	endpointPath string
	http         *http.Server
}

// NewHTTPServer configures, but does not start, the HTTP transport for s.
func NewHTTPServer(s *Server, cfg config.ServerConfig) *HTTPServer {
	endpoint := cfg.EndpointPath
	if endpoint == "" {
		endpoint = "/mcp"
	}
	h := &HTTPServer{mcp: s, endpointPath: endpoint}
	h.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           h.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return h
}

// Addr is the listen address.
func (h *HTTPServer) Addr() string { return h.http.Addr }

// Handler returns the router: the MCP endpoint plus /healthz.
func (h *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	streamable := server.NewStreamableHTTPServer(h.mcp.MCPServer(), server.WithEndpointPath(h.endpointPath))
	r.Handle(h.endpointPath, streamable)
	return r
}

func (h *HTTPServer) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"status": "ok",
		"server": ServerName,
		"root":   h.mcp.svc.Root(),
		"tools":  len(h.mcp.svc.ListTools()),
	})
}

// Start listens until ctx is done, then shuts down gracefully.
func (h *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("MCPServer", "Serving MCP over streamable HTTP on http://%s%s", h.http.Addr, h.endpointPath)
		errCh <- h.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	logging.Info("MCPServer", "Shutting down HTTP server")
	if err := h.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Package service is the protocol-agnostic entry point used by both the MCP
// handlers and the CLI commands. It turns raw argument maps into typed
// parameters and dispatches them to the discoverer or the executor.
package service

import (
	"context"
	"errors"
	"fmt"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
	"gotest-mcp/internal/catalog"
	"gotest-mcp/internal/discovery"
	"gotest-mcp/internal/execution"
)

// ErrUnknownTool is returned by CallTool for names not in the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Service holds everything needed to answer tool calls for one project root.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	root       string
	discoverer *discovery.Discoverer
	executor   *execution.Executor
}

// New wires a discoverer and an executor around b for the absolute root.
func New(root string, b backend.Backend) *Service {
	return &Service{
		root:       root,
		discoverer: discovery.New(root, b),
		executor:   execution.New(b),
	}
}

// Root returns the project root the service answers for.
func (s *Service) Root() string { return s.root }

// ListTools returns the advertised tools in catalog order.
func (s *Service) ListTools() []api.Tool {
	return catalog.ListTools()
}

// DiscoverTests validates raw and lists the matching tests.
func (s *Service) DiscoverTests(ctx context.Context, raw map[string]any) (*api.DiscoverTestsResponse, error) {
	params, err := api.ParseDiscoverTestsParams(raw)
	if err != nil {
		return nil, err
	}
	return s.discoverer.Discover(ctx, params)
}

// ExecuteTests validates raw and runs the selected tests. observe, when not
// nil, is called as each test finishes.
func (s *Service) ExecuteTests(ctx context.Context, raw map[string]any, observe func(api.TestResult)) (*api.ExecuteTestsResponse, error) {
	params, err := api.ParseExecuteTestsParams(raw)
	if err != nil {
		return nil, err
	}
	return s.executor.ExecuteWithObserver(ctx, params, observe)
}

// CallTool dispatches by tool name and returns the tool's response record.
func (s *Service) CallTool(ctx context.Context, name string, raw map[string]any) (any, error) {
	if _, ok := catalog.Lookup(name); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	params, err := api.Parse(api.Kind(name), raw)
	if err != nil {
		return nil, err
	}
	switch p := params.(type) {
	case api.DiscoverTestsParams:
		return s.discoverer.Discover(ctx, p)
	case api.ExecuteTestsParams:
		return s.executor.Execute(ctx, p)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
}

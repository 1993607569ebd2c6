package app

import (
	"fmt"

	"gotest-mcp/internal/backend/gotest"
	"gotest-mcp/internal/config"
	"gotest-mcp/internal/mcpserver"
	"gotest-mcp/internal/service"
)

// Services holds the objects built from one resolved configuration.
type Services struct {
	Root    string
	Backend *gotest.Backend
	Service *service.Service
	MCP     *mcpserver.Server
}

// InitializeServices builds the Go backend, the service and the MCP server.
func InitializeServices(cfg config.Config, version string) (*Services, error) {
	root, err := cfg.ResolveRoot()
	if err != nil {
		return nil, err
	}

	b, err := gotest.New(gotest.Options{
		Root:           root,
		GoBinary:       cfg.Project.GoBinary,
		EnvFile:        cfg.Project.EnvFile,
		Env:            cfg.Execution.Env,
		ExcludeDirs:    cfg.Project.ExcludeDirs,
		DefaultTimeout: cfg.Execution.DefaultTimeout,
		DisableCache:   cfg.Execution.CacheDisabled(),
		Race:           cfg.Execution.Race,
		Tags:           cfg.Execution.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create go test backend: %w", err)
	}

	svc := service.New(b.Root(), b)
	return &Services{
		Root:    b.Root(),
		Backend: b,
		Service: svc,
		MCP:     mcpserver.NewServer(svc, version),
	}, nil
}

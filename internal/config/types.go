package config

import (
	"time"
)

const (
	// TransportStdio serves MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportStreamableHTTP serves MCP over the streamable HTTP transport.
	TransportStreamableHTTP = "streamable-http"
)

// Config is the top-level configuration structure for gotest-mcp.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Execution ExecutionConfig `yaml:"execution"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProjectConfig describes the Go project whose tests are served.
type ProjectConfig struct {
	Root        string   `yaml:"root,omitempty"`        // Project root; relative paths resolve against the working directory
	GoBinary    string   `yaml:"goBinary,omitempty"`    // go executable used to run tests
	EnvFile     string   `yaml:"envFile,omitempty"`     // Optional dotenv file loaded into the test environment
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"` // Extra directory names skipped during discovery
}

// ExecutionConfig holds defaults applied to every test run.
type ExecutionConfig struct {
	DefaultTimeout time.Duration     `yaml:"defaultTimeout,omitempty"` // Passed as -timeout unless the request sets one
	DisableCache   *bool             `yaml:"disableCache,omitempty"`   // Adds -count=1 so results are never served from the test cache
	Race           bool              `yaml:"race,omitempty"`
	Tags           string            `yaml:"tags,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport    string `yaml:"transport,omitempty"`
	Host         string `yaml:"host,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	EndpointPath string `yaml:"endpointPath,omitempty"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// CacheDisabled reports whether runs bypass the go test cache.
func (e ExecutionConfig) CacheDisabled() bool {
	return e.DisableCache == nil || *e.DisableCache
}

package app

import (
	"gotest-mcp/internal/config"
)

// Config holds command line settings. Non-zero values override the layered
// file configuration.
type Config struct {
	ConfigPath string
	Root       string
	GoBinary   string
	Transport  string
	Host       string
	Port       int
	LogLevel   string
	LogFormat  string
	Debug      bool

	// Version is reported to MCP clients.
	Version string
}

// apply overlays the flag values onto cfg.
func (c *Config) apply(cfg *config.Config) {
	if c.Root != "" {
		cfg.Project.Root = c.Root
	}
	if c.GoBinary != "" {
		cfg.Project.GoBinary = c.GoBinary
	}
	if c.Transport != "" {
		cfg.Server.Transport = c.Transport
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = c.LogFormat
	}
	if c.Debug {
		cfg.Logging.Level = "debug"
	}
}

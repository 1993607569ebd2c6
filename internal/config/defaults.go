package config

import "time"

// GetDefaultConfig returns the configuration used when no file overrides a setting.
func GetDefaultConfig() Config {
	disableCache := true
	return Config{
		Project: ProjectConfig{
			Root:     ".",
			GoBinary: "go",
		},
		Execution: ExecutionConfig{
			DefaultTimeout: 10 * time.Minute,
			DisableCache:   &disableCache,
			Env:            map[string]string{},
		},
		Server: ServerConfig{
			Transport:    TransportStdio,
			Host:         "127.0.0.1",
			Port:         8090,
			EndpointPath: "/mcp",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gotest-mcp/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/gotest-mcp"
	projectConfigDir = ".gotest-mcp"
	configFileName   = "config.yaml"
)

// LoadConfig loads the configuration by layering default, user, project and
// explicit settings. explicitPath may be empty; when set the file must exist.
func LoadConfig(explicitPath string) (Config, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if config, err = overlayFile(config, userConfigPath, false); err != nil {
		return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if config, err = overlayFile(config, projectConfigPath, false); err != nil {
		return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if explicitPath != "" {
		if config, err = overlayFile(config, explicitPath, true); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
	}

	return config, nil
}

func overlayFile(base Config, path string, required bool) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	logging.Debug("Config", "Applied configuration layer %s", path)
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a Config from a YAML file.
func loadConfigFromFile(filePath string) (Config, error) {
	var config Config
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
// Zero values in overlay leave base untouched.
func mergeConfigs(base, overlay Config) Config {
	merged := base

	if overlay.Project.Root != "" {
		merged.Project.Root = overlay.Project.Root
	}
	if overlay.Project.GoBinary != "" {
		merged.Project.GoBinary = overlay.Project.GoBinary
	}
	if overlay.Project.EnvFile != "" {
		merged.Project.EnvFile = overlay.Project.EnvFile
	}
	if len(overlay.Project.ExcludeDirs) > 0 {
		merged.Project.ExcludeDirs = append(append([]string(nil), base.Project.ExcludeDirs...), overlay.Project.ExcludeDirs...)
	}

	if overlay.Execution.DefaultTimeout != 0 {
		merged.Execution.DefaultTimeout = overlay.Execution.DefaultTimeout
	}
	if overlay.Execution.DisableCache != nil {
		merged.Execution.DisableCache = overlay.Execution.DisableCache
	}
	if overlay.Execution.Race {
		merged.Execution.Race = true
	}
	if overlay.Execution.Tags != "" {
		merged.Execution.Tags = overlay.Execution.Tags
	}
	if len(overlay.Execution.Env) > 0 {
		env := make(map[string]string, len(base.Execution.Env)+len(overlay.Execution.Env))
		for k, v := range base.Execution.Env {
			env[k] = v
		}
		for k, v := range overlay.Execution.Env {
			env[k] = v
		}
		merged.Execution.Env = env
	}

	if overlay.Server.Transport != "" {
		merged.Server.Transport = overlay.Server.Transport
	}
	if overlay.Server.Host != "" {
		merged.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		merged.Server.Port = overlay.Server.Port
	}
	if overlay.Server.EndpointPath != "" {
		merged.Server.EndpointPath = overlay.Server.EndpointPath
	}

	if overlay.Logging.Level != "" {
		merged.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		merged.Logging.Format = overlay.Logging.Format
	}

	return merged
}

// Validate checks values that cannot be caught by YAML decoding alone.
func (c Config) Validate() error {
	var problems []string

	switch c.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		problems = append(problems, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportStreamableHTTP, c.Server.Transport))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.EndpointPath, "/") {
		problems = append(problems, "server.endpointPath must start with /")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}
	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if c.Execution.DefaultTimeout < 0 {
		problems = append(problems, "execution.defaultTimeout must not be negative")
	}
	if c.Project.GoBinary == "" {
		problems = append(problems, "project.goBinary must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ResolveRoot returns the absolute project root.
func (c Config) ResolveRoot() (string, error) {
	root := c.Project.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		wd, err := osGetwd()
		if err != nil {
			return "", err
		}
		root = filepath.Join(wd, root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", root)
	}
	return filepath.Clean(root), nil
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

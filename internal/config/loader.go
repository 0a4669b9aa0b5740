package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the configuration file at path, applying env-var
// interpolation and defaults, then validating the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w\nHint: check the path or pass --config", absPath, err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", absPath, err)
	}

	return &cfg, nil
}

// interpolateEnv replaces ${VAR} with environment variable values, leaving
// undefined variables as-is (caught by validate).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = d.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = d.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = d.Service.LogFormat
	}
	if cfg.Service.LockPath == "" {
		cfg.Service.LockPath = d.Service.LockPath
	}
	if cfg.Storage.WorkspacesRoot == "" {
		cfg.Storage.WorkspacesRoot = d.Storage.WorkspacesRoot
	}
	if cfg.Storage.ExecutionRoot == "" {
		cfg.Storage.ExecutionRoot = d.Storage.ExecutionRoot
	}
	if cfg.Storage.BackupRoot == "" {
		cfg.Storage.BackupRoot = d.Storage.BackupRoot
	}
	if cfg.Runner.Path == "" {
		cfg.Runner.Path = d.Runner.Path
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = d.API.Listen
	}
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Storage.WorkspacesRoot == "" {
		return fmt.Errorf("storage.workspaces_root is required")
	}
	if cfg.Storage.ExecutionRoot == "" {
		return fmt.Errorf("storage.execution_root is required")
	}
	if cfg.Storage.BackupRoot == "" {
		return fmt.Errorf("storage.backup_root is required")
	}
	if cfg.Runner.Path == "" {
		return fmt.Errorf("runner.path is required")
	}

	fields := map[string]string{
		"storage.workspaces_root": cfg.Storage.WorkspacesRoot,
		"storage.execution_root":  cfg.Storage.ExecutionRoot,
		"storage.backup_root":     cfg.Storage.BackupRoot,
		"runner.path":             cfg.Runner.Path,
		"api.listen":              cfg.API.Listen,
	}
	for name, value := range fields {
		if envVarPattern.MatchString(value) {
			return fmt.Errorf("%s: unresolved environment variable in %q", name, value)
		}
	}

	return nil
}

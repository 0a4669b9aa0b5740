// Package config loads the control plane's YAML configuration file:
// storage roots, the runner binary path, and the thin HTTP API surface.
// Adapted from the teacher's internal/config loader — the env-var
// interpolation and defaults-then-validate idiom is kept, but the
// plugin/route/webhook configuration schema has no analog here and is
// replaced with this module's own storage/scheduling settings.
package config

// Config is the complete automationd configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Storage StorageConfig `yaml:"storage"`
	Runner  RunnerConfig  `yaml:"runner"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LockPath  string `yaml:"lock_path"`
}

// StorageConfig locates the three on-disk trees the engine owns: compiled
// job directories and execution status (§4.B), recurring-job backups
// (§4.D), and the workspace tree (globals + snippet sources, §4.C).
type StorageConfig struct {
	WorkspacesRoot string `yaml:"workspaces_root"`
	ExecutionRoot  string `yaml:"execution_root"`
	BackupRoot     string `yaml:"backup_root"`
}

// RunnerConfig names the per-job child binary (cmd/jobrunner).
type RunnerConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines the control-plane HTTP surface. No auth/session
// machinery: callers identify themselves via the user fields in each
// request body, the same shape the original accepts from its caller
// rather than from a session.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Defaults returns the configuration applied when a field is left unset.
// Load fills in each empty string field from here; API.Enabled is a bool and
// is not filled in, so the API is off unless the file sets api.enabled: true.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "automationd",
			LogLevel:  "info",
			LogFormat: "json",
			LockPath:  "./data/automationd.lock",
		},
		Storage: StorageConfig{
			WorkspacesRoot: "./data/workspaces",
			ExecutionRoot:  "./data/executions",
			BackupRoot:     "./data/backups",
		},
		Runner: RunnerConfig{
			Path: "./jobrunner",
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8090",
		},
	}
}


package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "service:\n  name: automationd\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Service.LogLevel)
	require.Equal(t, "./data/workspaces", cfg.Storage.WorkspacesRoot)
	require.Equal(t, "./jobrunner", cfg.Runner.Path)
	require.Equal(t, "127.0.0.1:8090", cfg.API.Listen)
}

func TestLoad_InterpolatesEnvVars(t *testing.T) {
	t.Setenv("AUTOMATIOND_WORKSPACES", "/srv/workspaces")
	path := writeConfig(t, "storage:\n  workspaces_root: ${AUTOMATIOND_WORKSPACES}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/workspaces", cfg.Storage.WorkspacesRoot)
}

func TestLoad_RejectsUnresolvedEnvVar(t *testing.T) {
	path := writeConfig(t, "runner:\n  path: ${DEFINITELY_UNSET_VAR}\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, "service:\n  log_level: verbose\n")
	_, err := Load(path)
	require.Error(t, err)
}

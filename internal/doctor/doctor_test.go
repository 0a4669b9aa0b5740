package doctor

import (
	"os"
	"testing"

	"github.com/mattjoyce/automationd/internal/config"
)

func writeFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), perm)
}

func validConfig(t *testing.T, runnerPath string) *config.Config {
	t.Helper()
	return &config.Config{
		Service: config.ServiceConfig{LogLevel: "info", LockPath: "./data/automationd.lock"},
		Storage: config.StorageConfig{
			WorkspacesRoot: t.TempDir(),
			ExecutionRoot:  t.TempDir(),
			BackupRoot:     t.TempDir(),
		},
		Runner: config.RunnerConfig{Path: runnerPath},
		API:    config.APIConfig{Enabled: true, Listen: "127.0.0.1:8090"},
	}
}

func TestValidate_PassesOnWellFormedConfig(t *testing.T) {
	t.Parallel()

	runner := writeExecutable(t)
	r := New(validConfig(t, runner)).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_FlagsMissingRunnerBinary(t *testing.T) {
	t.Parallel()

	cfg := validConfig(t, "/does/not/exist/jobrunner")
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatalf("expected invalid")
	}
	found := false
	for _, e := range r.Errors {
		if e.Field == "runner.path" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a runner.path error, got %v", r.Errors)
	}
}

func TestValidate_FlagsBadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := validConfig(t, writeExecutable(t))
	cfg.Service.LogLevel = "verbose"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatalf("expected invalid")
	}
}

func TestValidate_FlagsBadListenAddress(t *testing.T) {
	t.Parallel()

	cfg := validConfig(t, writeExecutable(t))
	cfg.API.Listen = "not-a-host-port"
	r := New(cfg).Validate()
	if r.Valid {
		t.Fatalf("expected invalid")
	}
}

func writeExecutable(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/jobrunner"
	if err := writeFile(path, 0o755); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	return path
}

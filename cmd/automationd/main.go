// Command automationd is the control-plane process: it owns JobsManager,
// EventQueue, ExecutionStore, JobModel, the thin HTTP surface, and can
// launch a live job-watch TUI against a running instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/automationd/internal/api"
	"github.com/mattjoyce/automationd/internal/config"
	"github.com/mattjoyce/automationd/internal/doctor"
	"github.com/mattjoyce/automationd/internal/events"
	"github.com/mattjoyce/automationd/internal/eventqueue"
	"github.com/mattjoyce/automationd/internal/execstore"
	"github.com/mattjoyce/automationd/internal/jobmodel"
	"github.com/mattjoyce/automationd/internal/jobprocess"
	"github.com/mattjoyce/automationd/internal/jobsmanager"
	"github.com/mattjoyce/automationd/internal/lock"
	"github.com/mattjoyce/automationd/internal/log"
	"github.com/mattjoyce/automationd/internal/tui/watch"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "watch" {
		return runWatch(args[1:])
	}
	if len(args) > 0 && args[0] == "doctor" {
		return runDoctor(args[1:])
	}
	if len(args) > 0 && (args[0] == "--version" || args[0] == "version") {
		fmt.Println("automationd " + version)
		return 0
	}
	return runStart(args)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("automationd", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("automationd starting", "version", version, "config", *configPath)

	for _, dir := range []string{cfg.Storage.WorkspacesRoot, cfg.Storage.ExecutionRoot, cfg.Storage.BackupRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create storage directory", "dir", dir, "error", err)
			return 1
		}
	}

	pidLock, err := lock.AcquirePIDLock(cfg.Service.LockPath)
	if err != nil {
		logger.Error("another automationd instance holds the lock", "lock_path", cfg.Service.LockPath, "error", err)
		return 1
	}
	defer pidLock.Release()

	store, err := execstore.New(cfg.Storage.ExecutionRoot, log.WithComponent("execstore"))
	if err != nil {
		logger.Error("failed to open execution store", "root", cfg.Storage.ExecutionRoot, "error", err)
		return 1
	}

	backups, err := jobprocess.NewBackupStore(cfg.Storage.BackupRoot)
	if err != nil {
		logger.Error("failed to open backup store", "root", cfg.Storage.BackupRoot, "error", err)
		return 1
	}

	compiler := jobmodel.New(cfg.Storage.WorkspacesRoot, log.WithComponent("jobmodel"))
	queue := eventqueue.New(log.WithComponent("eventqueue"))
	defer queue.Stop()

	hub := events.NewHub(256)

	runnerPath, err := filepath.Abs(cfg.Runner.Path)
	if err != nil {
		logger.Error("failed to resolve runner path", "path", cfg.Runner.Path, "error", err)
		return 1
	}

	manager := jobsmanager.New(queue, store, compiler, backups, hub, jobprocess.RunnerConfig{
		RunnerPath: runnerPath,
		Logger:     log.WithComponent("jobprocess"),
	}, log.WithComponent("jobsmanager"))

	manager.ReloadFromBackups()
	logger.Info("reloaded recurring jobs from backups")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{Listen: cfg.API.Listen}, manager, store, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("api server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("automationd running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("automationd stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8090", "control-plane API URL")
	workspace := fs.String("workspace", "common", "workspace to watch")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "flag error: %v\n", err)
		return 1
	}

	m := watch.New(*apiURL, *workspace)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to configuration file")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to format report: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

package jobprocess

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mattjoyce/automationd/internal/events"
	"github.com/mattjoyce/automationd/internal/execstore"
	"github.com/mattjoyce/automationd/internal/wire"
)

// Rescheduler schedules the next occurrence of a recurring job, sharing
// source and parameters with the one that just fired. Supplied by
// jobsmanager, whose Schedule already implements the full §4.E composition —
// kept as a function value here to avoid jobprocess depending upward on
// jobsmanager.
type Rescheduler func(job *Job, nextDeadline time.Time) error

// RunnerConfig names the child binary and where its compiled job tree lives.
type RunnerConfig struct {
	RunnerPath string               // path to the cmd/jobrunner binary
	JobDir     func(jobID string) string
	Store      *execstore.Store
	Backups    *BackupStore
	Logger     *slog.Logger
	Hub        *events.Hub // optional: publishes job.started/job.finished
}

// Fire implements the §4.D fire callback: on a recurring job, reschedule the
// next occurrence and delete the backup before running; then run the child
// process to completion and record the terminal state.
func Fire(ctx context.Context, job *Job, name string, cfg RunnerConfig, reschedule Rescheduler) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if job.Mode.Recurring() {
		next := job.Deadline().Add(Stride(job.Mode, job.At))
		if reschedule != nil {
			if err := reschedule(job, next); err != nil {
				logger.Error("jobprocess: reschedule failed", "job_id", job.ID, "error", err)
			}
		}
		if cfg.Backups != nil {
			if err := cfg.Backups.Delete(job.ID); err != nil {
				logger.Warn("jobprocess: backup delete failed", "job_id", job.ID, "error", err)
			}
		}
	}

	job.transition(wire.StateRunning)
	if cfg.Store != nil {
		_ = cfg.Store.WriteStatus(job.ID, job.StatusDoc(name))
	}

	jobDir := cfg.JobDir(job.ID)
	appendLogLine(jobDir, wire.JobRef, wire.KindJobStarted, "")
	if cfg.Hub != nil {
		cfg.Hub.Publish(events.TypeJobStarted, events.JobEventPayload{JobID: job.ID, Workspace: job.Workspace, State: string(wire.StateRunning)})
	}

	start := time.Now()
	rc, stderr, runErr := runChild(ctx, job, cfg.RunnerPath, jobDir)
	duration := time.Since(start).Seconds()

	if stderr != "" {
		appendLogLine(jobDir, wire.JobRef, wire.KindJobError, stderr)
	}
	if runErr != nil {
		logger.Error("jobprocess: runner invocation failed", "job_id", job.ID, "error", runErr)
		rc = int(wire.RetError)
	}

	final := wire.StateSuccess
	if rc != int(wire.RetPass) {
		final = wire.StateFailure
	}

	job.mu.Lock()
	job.state = final
	job.duration = duration
	job.mu.Unlock()

	if cfg.Store != nil {
		_ = cfg.Store.WriteStatus(job.ID, job.StatusDoc(name))
	}
	appendLogLine(jobDir, wire.JobRef, wire.KindJobStopped, fmt.Sprintf("%s %s", final, wire.FormatDuration(duration)))
	if cfg.Hub != nil {
		cfg.Hub.Publish(events.TypeJobFinished, events.JobEventPayload{JobID: job.ID, Workspace: job.Workspace, State: string(final)})
	}
}

// runChild forks the runner binary against jobDir, waits for exit, and
// returns its exit code (cmd/jobrunner exits 0 or 3, per wire.RetCode; a
// killed or crashed child yields whatever code the OS reports) along with
// any non-empty stderr. Grounded on internal/dispatch.spawnPlugin's process
// bookkeeping, minus its SIGTERM/SIGKILL timeout escalation — job runs have
// no deadline, per spec.md §4.D.
func runChild(ctx context.Context, job *Job, runnerPath, jobDir string) (int, string, error) {
	cmd := exec.CommandContext(ctx, runnerPath, jobDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return int(wire.RetError), "", err
	}
	job.mu.Lock()
	job.pid = cmd.Process.Pid
	job.mu.Unlock()

	err := cmd.Wait()

	job.mu.Lock()
	job.pid = 0
	job.mu.Unlock()

	if err == nil {
		return int(wire.RetPass), stderr.String(), nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), stderr.String(), nil
	}
	return int(wire.RetError), stderr.String(), err
}

func appendLogLine(jobDir, ref string, kind wire.LogKind, payload string) {
	f, err := os.OpenFile(filepath.Join(jobDir, "job.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(wire.FormatLogLine(time.Now(), ref, kind, payload))
}

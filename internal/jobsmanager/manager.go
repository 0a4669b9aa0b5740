// Package jobsmanager implements JobsManager: the registry that composes
// EventQueue, ExecutionStore, JobModel, and JobProcess into the §4.E
// control-plane contract — Schedule, Delete, List, ReloadFromBackups.
//
// Grounded on serverengine/jobsmanager.py: schedule_job's compile-then-queue
// ordering, execute_job's reschedule-before-run ordering (delegated to
// jobprocess.Fire), delete_job's ownership check, and reload_jobs'
// schedule-before-remove-backup ordering.
package jobsmanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/automationd/internal/events"
	"github.com/mattjoyce/automationd/internal/eventqueue"
	"github.com/mattjoyce/automationd/internal/execstore"
	"github.com/mattjoyce/automationd/internal/jobmodel"
	"github.com/mattjoyce/automationd/internal/jobprocess"
	"github.com/mattjoyce/automationd/internal/wire"
)

// Manager is JobsManager.
type Manager struct {
	queue    *eventqueue.Queue
	store    *execstore.Store
	compiler *jobmodel.Compiler
	backups  *jobprocess.BackupStore
	hub      *events.Hub
	runner   jobprocess.RunnerConfig
	logger   *slog.Logger

	mu   sync.Mutex
	jobs map[string]*jobprocess.Job
}

// New constructs a Manager. runner.JobDir is expected to point at
// store.Path so the runner binary and the execution store agree on where a
// job's compiled tree and log file live.
func New(queue *eventqueue.Queue, store *execstore.Store, compiler *jobmodel.Compiler, backups *jobprocess.BackupStore, hub *events.Hub, runner jobprocess.RunnerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if runner.JobDir == nil {
		runner.JobDir = store.Path
	}
	if runner.Store == nil {
		runner.Store = store
	}
	if runner.Backups == nil {
		runner.Backups = backups
	}
	if runner.Logger == nil {
		runner.Logger = logger
	}
	if runner.Hub == nil {
		runner.Hub = hub
	}
	return &Manager{
		queue:    queue,
		store:    store,
		compiler: compiler,
		backups:  backups,
		hub:      hub,
		runner:   runner,
		logger:   logger,
		jobs:     make(map[string]*jobprocess.Job),
	}
}

// ScheduleRequest is the §4.E Schedule contract's argument set.
type ScheduleRequest struct {
	User              wire.User
	Source            string
	Workspace         string
	Name              string
	Mode              wire.SchedMode
	At                [6]int
	ExplicitTimestamp *time.Time // overrides the computed §4.D deadline when set
}

// Schedule composes A+B+C+D: instantiate a Job, initialize its execution
// directory, compile its job document, compute (or accept) its deadline,
// persist a backup if recurring, register it in the event queue, and track
// it in the in-memory job list.
func (m *Manager) Schedule(req ScheduleRequest) (wire.Status, string) {
	id := uuid.NewString()

	status, detail := m.store.Init(id)
	if status != wire.OK {
		return status, detail
	}

	result := m.compiler.Compile(req.Source, req.Workspace, id, m.store.Path(id))
	if result.Status != wire.OK {
		m.store.Reset(id)
		return result.Status, result.Detail
	}

	deadline := time.Now()
	if req.ExplicitTimestamp != nil {
		deadline = *req.ExplicitTimestamp
	} else {
		deadline = jobprocess.ComputeDeadline(deadline, req.Mode, req.At)
	}

	job := jobprocess.NewJob(id, req.Workspace, req.Source, req.User, req.Mode, req.At, deadline)

	if job.Mode.Recurring() && m.backups != nil {
		if err := m.backups.Save(backupDoc(job, req.Name)); err != nil {
			m.logger.Error("jobsmanager: save backup failed", "job_id", id, "error", err)
		}
	}

	handle := m.queue.Add(id, deadline, func(any) {
		jobprocess.Fire(context.Background(), job, req.Name, m.runner, m.reschedule(req.Name))
	}, nil)
	job.SetHandle(handle)

	if err := m.store.WriteStatus(id, job.StatusDoc(req.Name)); err != nil {
		m.logger.Error("jobsmanager: write status failed", "job_id", id, "error", err)
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.Publish(events.TypeJobScheduled, events.JobEventPayload{JobID: id, Workspace: req.Workspace, State: string(wire.StateWaiting)})
	}

	return wire.OK, id
}

// reschedule adapts Manager.Schedule into the jobprocess.Rescheduler shape
// Fire calls for a recurring job's next occurrence.
func (m *Manager) reschedule(name string) jobprocess.Rescheduler {
	return func(job *jobprocess.Job, nextDeadline time.Time) error {
		at := job.At
		status, _ := m.Schedule(ScheduleRequest{
			User:              job.User,
			Source:            job.Source,
			Workspace:         job.Workspace,
			Name:              name,
			Mode:              job.Mode,
			At:                at,
			ExplicitTimestamp: &nextDeadline,
		})
		if status != wire.OK {
			return fmt.Errorf("reschedule failed with status %s", status)
		}
		return nil
	}
}

// Delete implements the §4.E authorization and state-dependent teardown:
// admin may delete any job; a non-admin only their own. RUNNING kills the
// child; WAITING cancels and drops the queued event. Other states are
// no-ops.
func (m *Manager) Delete(jobID string, user wire.User) (wire.Status, string) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return wire.NotFound, "job not found"
	}

	if user.Role != wire.RoleAdmin && job.User.Login != user.Login {
		return wire.Forbidden, "not the job owner"
	}

	switch job.State() {
	case wire.StateRunning:
		jobprocess.Kill(job)
	case wire.StateWaiting:
		jobprocess.Cancel(job, m.store, m.backups)
		if h, ok := job.Handle(); ok {
			m.queue.Remove(h)
		}
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
	}

	if m.hub != nil {
		m.hub.Publish(events.TypeJobDeleted, events.JobEventPayload{JobID: jobID, Workspace: job.Workspace})
	}
	return wire.OK, "deleted"
}

// List returns every WAITING or RUNNING job owned by workspace, per §4.E.
func (m *Manager) List(workspace string) []wire.StatusDoc {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]wire.StatusDoc, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.Workspace != workspace {
			continue
		}
		state := job.State()
		if state != wire.StateWaiting && state != wire.StateRunning {
			continue
		}
		out = append(out, job.StatusDoc(""))
	}
	return out
}

func backupDoc(job *jobprocess.Job, name string) wire.BackupDoc {
	return wire.BackupDoc{
		StatusDoc: job.StatusDoc(name),
		JobFile:   job.Source,
		JobDescr:  name,
	}
}

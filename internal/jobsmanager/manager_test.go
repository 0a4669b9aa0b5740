package jobsmanager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/automationd/internal/eventqueue"
	"github.com/mattjoyce/automationd/internal/execstore"
	"github.com/mattjoyce/automationd/internal/jobmodel"
	"github.com/mattjoyce/automationd/internal/jobprocess"
	"github.com/mattjoyce/automationd/internal/wire"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	workspaces := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspaces, "common", "snippets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workspaces, "common", "globals.yaml"), []byte("host: example.com\n"), 0o644))

	store, err := execstore.New(t.TempDir(), nil)
	require.NoError(t, err)

	backups, err := jobprocess.NewBackupStore(t.TempDir())
	require.NoError(t, err)

	compiler := jobmodel.New(workspaces, nil)
	queue := eventqueue.New(nil)
	t.Cleanup(queue.Stop)

	return New(queue, store, compiler, backups, nil, jobprocess.RunnerConfig{RunnerPath: "/bin/true"}, nil)
}

func TestSchedule_FarFutureJobStaysWaitingAndListed(t *testing.T) {
	m := newTestManager(t)
	future := time.Now().Add(24 * time.Hour)

	status, jobID := m.Schedule(ScheduleRequest{
		User:              wire.User{Login: "alice", Role: wire.RoleOperator},
		Source:            "python: |\n  echo hi\n",
		Workspace:         "common",
		Name:              "nightly",
		Mode:              wire.SchedAt,
		ExplicitTimestamp: &future,
	})
	require.Equal(t, wire.OK, status)
	require.NotEmpty(t, jobID)

	list := m.List("common")
	require.Len(t, list, 1)
	require.Equal(t, wire.StateWaiting, list[0].JobState)

	doc, ok := m.store.ReadStatus(jobID)
	require.True(t, ok)
	require.Equal(t, wire.StateWaiting, doc.JobState)
}

func TestSchedule_InvalidDocumentReturnsErrorAndCleansUp(t *testing.T) {
	m := newTestManager(t)
	future := time.Now().Add(time.Hour)

	status, _ := m.Schedule(ScheduleRequest{
		Workspace:         "common",
		Source:            "not: [valid",
		Mode:              wire.SchedAt,
		ExplicitTimestamp: &future,
	})
	require.Equal(t, wire.Error, status)
	require.Empty(t, m.List("common"))
}

func TestDelete_NonAdminCannotDeleteAnothersJob(t *testing.T) {
	m := newTestManager(t)
	future := time.Now().Add(time.Hour)
	_, jobID := m.Schedule(ScheduleRequest{
		User:              wire.User{Login: "alice", Role: wire.RoleOperator},
		Source:            "python: |\n  echo hi\n",
		Workspace:         "common",
		Mode:              wire.SchedAt,
		ExplicitTimestamp: &future,
	})

	status, _ := m.Delete(jobID, wire.User{Login: "bob", Role: wire.RoleOperator})
	require.Equal(t, wire.Forbidden, status)
	require.Len(t, m.List("common"), 1)
}

func TestDelete_WaitingJobIsCancelledAndDropped(t *testing.T) {
	m := newTestManager(t)
	future := time.Now().Add(time.Hour)
	_, jobID := m.Schedule(ScheduleRequest{
		User:              wire.User{Login: "alice", Role: wire.RoleOperator},
		Source:            "python: |\n  echo hi\n",
		Workspace:         "common",
		Mode:              wire.SchedAt,
		ExplicitTimestamp: &future,
	})

	status, _ := m.Delete(jobID, wire.User{Login: "alice", Role: wire.RoleOperator})
	require.Equal(t, wire.OK, status)
	require.Empty(t, m.List("common"))
}

func TestDelete_AdminCanDeleteAnyonesJob(t *testing.T) {
	m := newTestManager(t)
	future := time.Now().Add(time.Hour)
	_, jobID := m.Schedule(ScheduleRequest{
		User:              wire.User{Login: "alice", Role: wire.RoleOperator},
		Source:            "python: |\n  echo hi\n",
		Workspace:         "common",
		Mode:              wire.SchedAt,
		ExplicitTimestamp: &future,
	})

	status, _ := m.Delete(jobID, wire.User{Login: "root", Role: wire.RoleAdmin})
	require.Equal(t, wire.OK, status)
}

func TestReloadFromBackups_RecreatesRecurringJobs(t *testing.T) {
	m := newTestManager(t)
	past := time.Now().Add(-30 * time.Second)

	require.NoError(t, m.backups.Save(wire.BackupDoc{
		StatusDoc: wire.StatusDoc{
			JobID: "stale-id", JobState: wire.StateWaiting, Workspace: "common",
			SchedMode: wire.SchedDaily, SchedAt: [6]int{0, 0, 0, 10, 0, 0},
			SchedTimestamp: float64(past.Unix()), User: wire.User{Login: "alice", Role: wire.RoleOperator},
		},
		JobFile:  "python: |\n  echo hi\n",
		JobDescr: "nightly",
	}))

	m.ReloadFromBackups()
	require.Len(t, m.List("common"), 1)
}

func TestSchedule_RecurringJobPersistsSourceInBackup(t *testing.T) {
	m := newTestManager(t)
	source := "python: |\n  echo hi\n"

	status, jobID := m.Schedule(ScheduleRequest{
		User:      wire.User{Login: "alice", Role: wire.RoleOperator},
		Source:    source,
		Workspace: "common",
		Name:      "nightly",
		Mode:      wire.SchedDaily,
		At:        [6]int{0, 0, 0, 10, 0, 0},
	})
	require.Equal(t, wire.OK, status)

	docs, bad := m.backups.ListAll()
	require.Empty(t, bad)
	require.Len(t, docs, 1)
	require.Equal(t, jobID, docs[0].JobID)
	require.Equal(t, source, docs[0].JobFile)
}

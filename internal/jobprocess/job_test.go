package jobprocess

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/automationd/internal/wire"
)

func TestJob_StatusDocReflectsState(t *testing.T) {
	deadline := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	j := NewJob("job-1", "common", "python: echo hi\n", wire.User{Login: "alice", Role: wire.RoleOperator},
		wire.SchedAt, [6]int{2026, 7, 31, 10, 0, 0}, deadline)

	require.Equal(t, wire.StateWaiting, j.State())

	doc := j.StatusDoc("my-job")
	require.Equal(t, "job-1", doc.JobID)
	require.Equal(t, wire.StateWaiting, doc.JobState)
	require.Equal(t, float64(deadline.Unix()), doc.SchedTimestamp)

	j.transition(wire.StateRunning)
	require.Equal(t, wire.StateRunning, j.State())
}

func TestKill_NoLivePIDReturnsNotFound(t *testing.T) {
	j := NewJob("job-2", "common", "", wire.User{}, wire.SchedNow, [6]int{}, time.Now())
	require.Equal(t, wire.NotFound, Kill(j))
}

func TestBackupStore_SaveListDeleteRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := NewBackupStore(root)
	require.NoError(t, err)

	doc := wire.BackupDoc{
		StatusDoc: wire.StatusDoc{JobID: "job-3", JobState: wire.StateWaiting, Workspace: "common"},
		JobFile:   "job.yaml",
		JobDescr:  "nightly export",
	}
	require.NoError(t, store.Save(doc))

	_, err = os.Stat(filepath.Join(root, "job-3.json"))
	require.NoError(t, err)

	docs, bad := store.ListAll()
	require.Empty(t, bad)
	require.Len(t, docs, 1)
	require.Equal(t, "job-3", docs[0].JobID)

	require.NoError(t, store.Delete("job-3"))
	docs, _ = store.ListAll()
	require.Empty(t, docs)
}

func TestBackupStore_ListAllSkipsUnparsableEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "corrupt.json"), []byte("{not json"), 0o644))
	store, err := NewBackupStore(root)
	require.NoError(t, err)

	docs, bad := store.ListAll()
	require.Empty(t, docs)
	require.Len(t, bad, 1)

	// the corrupt file is left in place, not deleted.
	_, statErr := os.Stat(filepath.Join(root, "corrupt.json"))
	require.NoError(t, statErr)
}

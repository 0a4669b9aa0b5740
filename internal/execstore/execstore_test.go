package execstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattjoyce/automationd/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestStore_InitWriteReadStatus(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)

	status, detail := s.Init("job-1")
	require.Equal(t, wire.OK, status)
	require.NotEmpty(t, detail)

	doc := wire.StatusDoc{JobID: "job-1", JobState: wire.StateRunning, Workspace: "common"}
	require.NoError(t, s.WriteStatus("job-1", doc))

	got, ok := s.ReadStatus("job-1")
	require.True(t, ok)
	require.Equal(t, doc, got)

	raw, err := os.ReadFile(filepath.Join(s.Path("job-1"), "status.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "job-1")
}

func TestStore_BootTimeCacheScansExistingEntries(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(dir, nil)
	require.NoError(t, err)
	s1.Init("job-2")
	require.NoError(t, s1.WriteStatus("job-2", wire.StatusDoc{JobID: "job-2", JobState: wire.StateSuccess, Workspace: "common"}))

	s2, err := New(dir, nil)
	require.NoError(t, err)
	got, ok := s2.ReadStatus("job-2")
	require.True(t, ok)
	require.Equal(t, wire.StateSuccess, got.JobState)
}

func TestStore_ListByWorkspaceExcludesWaitingAndSortsDescending(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)

	s.Init("a")
	s.WriteStatus("a", wire.StatusDoc{JobID: "a", JobState: wire.StateSuccess, Workspace: "w", SchedTimestamp: 100})
	s.Init("b")
	s.WriteStatus("b", wire.StatusDoc{JobID: "b", JobState: wire.StateFailure, Workspace: "w", SchedTimestamp: 200})
	s.Init("c")
	s.WriteStatus("c", wire.StatusDoc{JobID: "c", JobState: wire.StateWaiting, Workspace: "w", SchedTimestamp: 300})

	got := s.ListByWorkspace("w")
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].JobID)
	require.Equal(t, "a", got[1].JobID)
}

func TestStore_ReadLogsMissingFileReturnsEmptyAndSameOffset(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	s.Init("job-3")

	text, next, err := s.ReadLogs("job-3", 42)
	require.NoError(t, err)
	require.Empty(t, text)
	require.Equal(t, int64(42), next)
}

func TestStore_ReadLogsIncrementalTail(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	s.Init("job-4")

	logPath := filepath.Join(s.Path("job-4"), "job.log")
	require.NoError(t, os.WriteFile(logPath, []byte("line one\n"), 0o644))

	text, off, err := s.ReadLogs("job-4", 0)
	require.NoError(t, err)
	require.Equal(t, "line one\n", text)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("line two\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text2, off2, err := s.ReadLogs("job-4", off)
	require.NoError(t, err)
	require.Equal(t, "line two\n", text2)
	require.Greater(t, off2, off)
}

func TestStore_ResetRemovesDirectoryAndCacheEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	s.Init("job-5")
	s.WriteStatus("job-5", wire.StatusDoc{JobID: "job-5"})

	s.Reset("job-5")

	_, ok := s.ReadStatus("job-5")
	require.False(t, ok)
	_, err = os.Stat(s.Path("job-5"))
	require.True(t, os.IsNotExist(err))
}

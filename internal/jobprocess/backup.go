package jobprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattjoyce/automationd/internal/wire"
)

// BackupStore owns <backup-root>/<job-id>.json: the recurring-job durability
// record described in spec.md §4.D. A backup exists exactly while its job is
// WAITING; ReloadFromBackups (in jobsmanager) rebuilds the in-memory job set
// by replaying these files at startup. Grounded on
// serverengine/jobsmanager.py's reload_jobs and its matching save/delete
// calls in schedule_job/execute_job.
type BackupStore struct {
	mu   sync.Mutex
	root string
}

func NewBackupStore(root string) (*BackupStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("jobprocess: create backup root: %w", err)
	}
	return &BackupStore{root: root}, nil
}

func (b *BackupStore) path(jobID string) string {
	return filepath.Join(b.root, jobID+".json")
}

// Save writes the full re-schedule payload for job. Called on schedule for
// any recurring job, and again after each fire for the newly scheduled next
// occurrence.
func (b *BackupStore) Save(doc wire.BackupDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jobprocess: marshal backup: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := b.path(doc.JobID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jobprocess: write backup: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("jobprocess: rename backup: %w", err)
	}
	return nil
}

// Delete removes a job's backup file, if present. Best-effort: a missing
// file is not an error.
func (b *BackupStore) Delete(jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := os.Remove(b.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListAll reads every backup file in the root, skipping (and logging,
// via the caller) entries that fail to parse rather than deleting them —
// preserving serverengine/jobsmanager.py's reload_jobs behavior of leaving a
// corrupt backup in place for manual inspection.
func (b *BackupStore) ListAll() ([]wire.BackupDoc, []string) {
	b.mu.Lock()
	entries, err := os.ReadDir(b.root)
	b.mu.Unlock()
	if err != nil {
		return nil, nil
	}

	var docs []wire.BackupDoc
	var badPaths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		full := filepath.Join(b.root, e.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			badPaths = append(badPaths, full)
			continue
		}
		var doc wire.BackupDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			badPaths = append(badPaths, full)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, badPaths
}

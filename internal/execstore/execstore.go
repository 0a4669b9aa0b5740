// Package execstore implements ExecutionStore: a per-job directory holding
// a status document, an append-only log file, and the compiled runner tree
// written by the job model compiler.
//
// Grounded on the original server's serverstorage/executionstorage.py
// (ExecutionsStorage: init_cache/init_storage/update_status/get_logs) and,
// for the on-disk layout conventions (mkdir, atomic file writes, logging on
// bad entries), the teacher's internal/workspace/fs_manager.go.
package execstore

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mattjoyce/automationd/internal/wire"
)

const (
	statusFile = "status.json"
	logFile    = "job.log"
	dirPerm    = 0o755
)

// Store is ExecutionStore: root-relative per-job directories plus an
// in-memory cache of each job's last-written status.
type Store struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]wire.StatusDoc
}

// New creates a Store rooted at root and performs the boot-time cache scan
// described in §4.B: every <root>/<id>/status.json is loaded into memory;
// entries with a missing or invalid status are skipped with an error log.
func New(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("execstore: create root: %w", err)
	}
	s := &Store{root: root, logger: logger, cache: make(map[string]wire.StatusDoc)}
	s.scanCache()
	return s, nil
}

func (s *Store) scanCache() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Error("execstore: scan root failed", "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		doc, err := s.readStatusFile(e.Name())
		if err != nil {
			s.logger.Error("execstore: bad entry", "job_id", e.Name(), "error", err)
			continue
		}
		s.cache[e.Name()] = doc
	}
}

// Path returns the absolute directory for a job id.
func (s *Store) Path(jobID string) string {
	return filepath.Join(s.root, jobID)
}

func (s *Store) statusPath(jobID string) string {
	return filepath.Join(s.Path(jobID), statusFile)
}

func (s *Store) logPath(jobID string) string {
	return filepath.Join(s.Path(jobID), logFile)
}

// Init creates the job directory. Returns ERROR if the directory cannot be
// made (including if it already exists, per the original's non-idempotent
// os.mkdir).
func (s *Store) Init(jobID string) (wire.Status, string) {
	if err := os.Mkdir(s.Path(jobID), dirPerm); err != nil {
		s.logger.Error("execstore: mkdir failed", "job_id", jobID, "error", err)
		return wire.Error, "add result folder error"
	}
	s.mu.Lock()
	s.cache[jobID] = wire.StatusDoc{}
	s.mu.Unlock()
	return wire.OK, "result storage initiated"
}

// Reset recursively removes a job directory. Best-effort: a missing
// directory is not an error.
func (s *Store) Reset(jobID string) {
	if err := os.RemoveAll(s.Path(jobID)); err != nil {
		s.logger.Warn("execstore: reset failed", "job_id", jobID, "error", err)
	}
	s.mu.Lock()
	delete(s.cache, jobID)
	s.mu.Unlock()
}

// WriteStatus atomically overwrites status.json (write to a temp file in
// the same directory, then rename) and updates the in-memory cache.
func (s *Store) WriteStatus(jobID string, status wire.StatusDoc) error {
	b, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("execstore: marshal status: %w", err)
	}

	dst := s.statusPath(jobID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("execstore: write status: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("execstore: rename status: %w", err)
	}

	s.mu.Lock()
	s.cache[jobID] = status
	s.mu.Unlock()
	return nil
}

func (s *Store) readStatusFile(jobID string) (wire.StatusDoc, error) {
	var doc wire.StatusDoc
	b, err := os.ReadFile(s.statusPath(jobID))
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// ReadStatus returns the cached status document for a job id.
func (s *Store) ReadStatus(jobID string) (wire.StatusDoc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.cache[jobID]
	return doc, ok
}

// ListByWorkspace returns every cached job in workspace whose state is not
// WAITING, sorted by scheduled timestamp descending.
func (s *Store) ListByWorkspace(workspace string) []wire.StatusDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]wire.StatusDoc, 0, len(s.cache))
	for _, doc := range s.cache {
		if doc.JobState == wire.StateWaiting {
			continue
		}
		if doc.Workspace != workspace {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SchedTimestamp > out[j].SchedTimestamp
	})
	return out
}

// ReadLogs opens job.log, seeks to fromByteOffset, and returns the
// remainder plus the new offset. A missing file returns empty text and the
// same offset back, per §4.B.
func (s *Store) ReadLogs(jobID string, fromByteOffset int64) (string, int64, error) {
	f, err := os.Open(s.logPath(jobID))
	if os.IsNotExist(err) {
		return "", fromByteOffset, nil
	}
	if err != nil {
		return "", fromByteOffset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fromByteOffset, err
	}
	if fromByteOffset >= info.Size() {
		return "", fromByteOffset, nil
	}
	if _, err := f.Seek(fromByteOffset, 0); err != nil {
		return "", fromByteOffset, err
	}
	rest, err := io.ReadAll(f)
	if err != nil {
		return "", fromByteOffset, err
	}
	return string(rest), fromByteOffset + int64(len(rest)), nil
}

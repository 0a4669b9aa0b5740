package jobsmanager

import (
	"time"

	"github.com/mattjoyce/automationd/internal/wire"
)

// ReloadFromBackups scans the backup directory and re-schedules each entry
// using its stored sched-timestamp verbatim, then removes the backup file —
// grounded on serverengine/jobsmanager.py's reload_jobs. Schedule runs
// before the backup is deleted: a crash mid-reload leaves the backup in
// place rather than silently losing the job. A backup that fails to parse
// is skipped, not deleted, mirroring the original.
func (m *Manager) ReloadFromBackups() {
	docs, bad := m.backups.ListAll()
	for _, path := range bad {
		m.logger.Error("jobsmanager: skipping unparsable backup", "path", path)
	}

	for _, doc := range docs {
		ts := time.Unix(int64(doc.SchedTimestamp), 0)
		status, detail := m.Schedule(ScheduleRequest{
			User:              doc.User,
			Source:            doc.JobFile,
			Workspace:         doc.Workspace,
			Name:              doc.JobDescr,
			Mode:              doc.SchedMode,
			At:                doc.SchedAt,
			ExplicitTimestamp: &ts,
		})
		if status != wire.OK {
			m.logger.Error("jobsmanager: reload schedule failed", "job_id", doc.JobID, "detail", detail)
			continue
		}
		if err := m.backups.Delete(doc.JobID); err != nil {
			m.logger.Warn("jobsmanager: backup cleanup failed", "job_id", doc.JobID, "error", err)
		}
	}
}

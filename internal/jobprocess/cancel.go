package jobprocess

import "github.com/mattjoyce/automationd/internal/execstore"

// Cancel is only meaningful in WAITING: reset the execution directory and
// delete the backup, per spec.md §4.D.
func Cancel(job *Job, store *execstore.Store, backups *BackupStore) {
	if store != nil {
		store.Reset(job.ID)
	}
	if backups != nil {
		_ = backups.Delete(job.ID)
	}
}

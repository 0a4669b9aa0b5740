package jobprocess

import (
	"os"

	"github.com/mattjoyce/automationd/internal/wire"
)

// Kill sends the platform's terminate-now signal to the running child, per
// spec.md §4.D — immediate, unlike the teacher's dispatch package, which
// escalates SIGTERM then waits out a grace period before SIGKILL. Returns
// NotFound if the job has no live pid (already exited, or never RUNNING).
func Kill(job *Job) wire.Status {
	pid := job.PID()
	if pid == 0 {
		return wire.NotFound
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return wire.NotFound
	}
	if err := proc.Kill(); err != nil {
		return wire.NotFound
	}
	return wire.OK
}

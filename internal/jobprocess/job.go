package jobprocess

import (
	"sync"
	"time"

	"github.com/mattjoyce/automationd/internal/eventqueue"
	"github.com/mattjoyce/automationd/internal/wire"
)

// Job is the in-memory record for one scheduled job: the §4.D state
// machine plus everything needed to re-fire or re-schedule it. Grounded on
// serverengine/jobmodel.py's Job class.
type Job struct {
	ID        string
	Workspace string
	Source    string // inline YAML blob, or a workspace-relative path
	User      wire.User
	Mode      wire.SchedMode
	At        [6]int

	mu             sync.Mutex
	state          wire.JobState
	schedTimestamp float64
	duration       float64
	pid            int
	handle         eventqueue.Handle
	hasHandle      bool
}

// NewJob constructs a job in the WAITING state. deadline is the already
// computed §4.D initial deadline (or the caller's explicit_timestamp).
func NewJob(id, workspace, source string, user wire.User, mode wire.SchedMode, at [6]int, deadline time.Time) *Job {
	return &Job{
		ID:             id,
		Workspace:      workspace,
		Source:         source,
		User:           user,
		Mode:           mode,
		At:             at,
		state:          wire.StateWaiting,
		schedTimestamp: float64(deadline.Unix()),
	}
}

func (j *Job) State() wire.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) SchedTimestamp() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.schedTimestamp
}

func (j *Job) Deadline() time.Time {
	return time.Unix(int64(j.SchedTimestamp()), 0)
}

func (j *Job) Duration() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.duration
}

func (j *Job) PID() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pid
}

// SetHandle records the job's queued event, so Cancel/Delete can remove it.
func (j *Job) SetHandle(h eventqueue.Handle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.handle = h
	j.hasHandle = true
}

func (j *Job) Handle() (eventqueue.Handle, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.handle, j.hasHandle
}

// StatusDoc renders the §6 status document snapshot for this job.
func (j *Job) StatusDoc(name string) wire.StatusDoc {
	j.mu.Lock()
	defer j.mu.Unlock()
	return wire.StatusDoc{
		JobID:          j.ID,
		JobState:       j.state,
		JobName:        name,
		JobDuration:    j.duration,
		SchedMode:      j.Mode,
		SchedAt:        j.At,
		SchedTimestamp: j.schedTimestamp,
		User:           j.User,
		Workspace:      j.Workspace,
	}
}

func (j *Job) transition(to wire.JobState) {
	j.mu.Lock()
	j.state = to
	j.mu.Unlock()
}

func nowFloat() float64 {
	return float64(time.Now().Unix())
}

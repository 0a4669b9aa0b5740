package wire

// StatusDoc is the status.json schema written by ExecutionStore.WriteStatus
// and read back by ReadStatus/ListByWorkspace.
type StatusDoc struct {
	JobID           string    `json:"job-id"`
	JobState        JobState  `json:"job-state"`
	JobName         string    `json:"job-name"`
	JobDuration     float64   `json:"job-duration"`
	SchedMode       SchedMode `json:"sched-mode"`
	SchedAt         [6]int    `json:"sched-at"`
	SchedTimestamp  float64   `json:"sched-timestamp"`
	User            User      `json:"user"`
	Workspace       string    `json:"workspace"`
}

// BackupDoc is the recurring-job backup schema: a StatusDoc augmented with
// the original source so ReloadFromBackups can reconstruct the Schedule
// call verbatim.
type BackupDoc struct {
	StatusDoc `yaml:",inline"`
	JobFile   string `json:"job-file"`
	JobDescr  string `json:"job-descr"`
}

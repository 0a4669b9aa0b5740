package api

import "github.com/mattjoyce/automationd/internal/wire"

// ScheduleRequest is the POST /workspaces/{workspace}/jobs request body. The
// workspace is taken from the URL path and overrides the Workspace field.
type ScheduleRequest struct {
	Workspace string      `json:"workspace"`
	Source    string      `json:"source"`
	Name      string      `json:"name,omitempty"`
	Mode      wire.SchedMode `json:"sched_mode"`
	At        [6]int      `json:"sched_at,omitempty"`
	User      wire.User   `json:"user"`
}

// ScheduleResponse is the POST /workspaces/{workspace}/jobs success body.
type ScheduleResponse struct {
	JobID string `json:"job_id"`
}

// DeleteRequest is the DELETE /jobs/{jobID} request body: the caller's
// identity, carried in the body rather than a session since this surface
// has no auth layer.
type DeleteRequest struct {
	User wire.User `json:"user"`
}

// LogsResponse is the GET /jobs/{jobID}/logs response body.
type LogsResponse struct {
	Lines  string `json:"lines"`
	Offset int64  `json:"offset"`
}

// ErrorResponse is the uniform error body for non-2xx responses.
type ErrorResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

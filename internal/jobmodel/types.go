package jobmodel

import "github.com/mattjoyce/automationd/internal/wire"

// CompiledSnippet is one DAG node as written into a job's compiled tree.
// The runner constructs a snippetruntime.Snippet from each entry.
type CompiledSnippet struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Entrypoint     string            `json:"entrypoint,omitempty"`
	DegradedReason string            `json:"degraded_reason,omitempty"`
	Variables      map[string]any    `json:"variables,omitempty"`
	CaptureRegex   string            `json:"capture_regex,omitempty"`
	When           map[string]string `json:"when,omitempty"` // predecessor name -> message
}

// CompiledJob is the runner tree written by Compile into the job directory
// as job.json. It is the contract between the job model compiler and the
// runner binary; the only other file the compiler writes is the inline
// shape's shell wrapper script (see compileInline).
type CompiledJob struct {
	JobID       string            `json:"job_id"`
	Workspace   string            `json:"workspace"`
	Fingerprint string            `json:"fingerprint"`
	Globals     map[string]any    `json:"globals,omitempty"`
	Snippets    []CompiledSnippet `json:"snippets"`
}

// CompileResult is the contract's outer Status/detail pair.
type CompileResult struct {
	Status wire.Status
	Detail string
	Job    *CompiledJob
}

package snippetruntime

import (
	"log/slog"

	"github.com/mattjoyce/automationd/internal/jobmodel"
)

// Run is the runner binary's entire job-execution entry point: it builds a
// Dispatcher and its Snippet DAG from a compiled job tree, runs the event
// loop to completion, and returns the aggregate return code.
//
// Grounded on joblibrary/jobhandler.py's JobHandler construction sequence:
// snippets are registered before any InitLinks call so that every `when`
// predecessor name resolves, matching the original's two-pass build.
func Run(job *jobmodel.CompiledJob, tracer *Tracer, logger *slog.Logger) *Dispatcher {
	store := NewDataStore()
	d := New(job.Globals, store, tracer, logger)

	snippets := make([]*Snippet, len(job.Snippets))
	for i, spec := range job.Snippets {
		snip := NewSnippet(spec.ID, spec.Name, spec.Description, spec.Variables)
		snippets[i] = snip
		d.Register(snip, NewBodyCallback(job.JobID, spec, d))
	}

	for i, spec := range job.Snippets {
		snippets[i].InitLinks(spec.When)
	}

	d.Run()
	return d
}

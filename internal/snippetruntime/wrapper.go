package snippetruntime

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/mattjoyce/automationd/internal/jobmodel"
	"github.com/mattjoyce/automationd/internal/snippetproto"
)

// NewBodyCallback builds the closure Register binds as a snippet's body:
// it resolves runtime variables, spawns the snippet's entrypoint (or
// immediately fails on a degraded snippet), decodes the subprocess's
// response, and folds it into Done/Error/Emit/DataStore.
//
// Grounded on joblibrary/jobhandler.py's run_snippet, adapted to Go's
// os/exec rather than the original's thread-per-snippet model, and onto
// the externally-compiled-module wire protocol in snippetproto (design
// option (c) from spec.md §9).
func NewBodyCallback(jobID string, spec jobmodel.CompiledSnippet, d *Dispatcher) func(*Snippet) {
	return func(s *Snippet) {
		start := time.Now()
		s.Begin()
		defer func() { s.Ending(time.Since(start)) }()

		if spec.Entrypoint == "" {
			s.Error(spec.DegradedReason)
			return
		}

		resolved := make(map[string]any, len(spec.Variables))
		for k, v := range spec.Variables {
			resolved[k] = ResolveVariable(v, d.Globals, d.DataStore)
		}

		req := &snippetproto.Request{
			JobID:       jobID,
			SnippetID:   spec.ID,
			SnippetName: spec.Name,
			Description: spec.Description,
			Variables:   resolved,
		}

		resp, err := runEntrypoint(spec.Entrypoint, req, func(line string) {
			d.Tracer.SnippetLog(spec.ID, line)
		})
		if err != nil {
			s.Error(err.Error())
			return
		}
		if resp.Status == snippetproto.StatusError {
			s.Error(resp.Error)
			return
		}

		for k, v := range resp.Sets {
			d.DataStore.Set(k, v)
		}
		if spec.CaptureRegex != "" {
			capture := resp.Capture
			if err := d.DataStore.Capture(capture, spec.CaptureRegex); err != nil {
				d.Tracer.SnippetError(spec.ID, "capture: "+err.Error())
			}
		}

		for _, msg := range resp.Emits {
			s.Emit(msg)
		}
		s.Done()
	}
}

// runEntrypoint spawns path, writes req to its stdin, streams stderr through
// onStderrLine (one tracer line per line of output), and decodes stdout as a
// snippetproto.Response. There is no timeout here: snippet bodies run to
// completion, per spec.md §5 — unlike the teacher's dispatch.spawnPlugin,
// which escalates SIGTERM then SIGKILL against a deadline.
func runEntrypoint(path string, req *snippetproto.Request, onStderrLine func(string)) (*snippetproto.Response, error) {
	cmd := exec.CommandContext(context.Background(), path)

	var stdin bytes.Buffer
	if err := snippetproto.EncodeRequest(&stdin, req); err != nil {
		return nil, err
	}
	cmd.Stdin = &stdin

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderrWriter := NewLineWriter(onStderrLine)
	cmd.Stderr = stderrWriter

	runErr := cmd.Run()
	stderrWriter.Flush()

	resp, decodeErr := snippetproto.DecodeResponse(&stdout)
	if decodeErr != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, decodeErr
	}
	return resp, nil
}

package snippetruntime

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattjoyce/automationd/internal/wire"
)

// Tracer is JobTracer: an append-line-buffered writer for <job-dir>/job.log.
// Grounded on joblibrary/jobtracer.py.
type Tracer struct {
	mu sync.Mutex
	f  *os.File
}

// NewTracer opens <jobDir>/job.log in append mode, creating it if absent.
func NewTracer(jobDir string) (*Tracer, error) {
	f, err := os.OpenFile(filepath.Join(jobDir, "job.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("snippetruntime: open job.log: %w", err)
	}
	return &Tracer{f: f}, nil
}

// Close closes the underlying file descriptor. Owned by the tracer and
// closed on job termination.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Close()
}

func (t *Tracer) write(ref string, kind wire.LogKind, payload string) {
	line := wire.FormatLogLine(time.Now(), ref, kind, payload)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.f.WriteString(line)
}

func (t *Tracer) JobStarted() {
	t.write(wire.JobRef, wire.KindJobStarted, "")
}

func (t *Tracer) JobStopped(state wire.JobState, duration float64) {
	t.write(wire.JobRef, wire.KindJobStopped, fmt.Sprintf("%s %s", state, wire.FormatDuration(duration)))
}

func (t *Tracer) JobError(text string) {
	t.write(wire.JobRef, wire.KindJobError, text)
}

func (t *Tracer) JobLog(text string) {
	t.write(wire.JobRef, wire.KindJobLog, text)
}

func (t *Tracer) SnippetBegin(id int, description string) {
	t.write(fmt.Sprint(id), wire.KindSnippetBegin, description)
}

func (t *Tracer) SnippetEnding(id int, state wire.JobState, duration float64) {
	t.write(fmt.Sprint(id), wire.KindSnippetEnding, fmt.Sprintf("%s %s", state, wire.FormatDuration(duration)))
}

func (t *Tracer) SnippetLog(id int, text string) {
	t.write(fmt.Sprint(id), wire.KindSnippetLog, text)
}

func (t *Tracer) SnippetError(id int, text string) {
	t.write(fmt.Sprint(id), wire.KindSnippetError, text)
}

// LineWriter adapts a line-buffered stream (a spawned snippet's captured
// stdout or stderr) into tracer lines, one per line, skipping bare newline
// writes — mirrors joblibrary/jobtracer.py's StdWriter.
type LineWriter struct {
	emit func(line string)
	buf  []byte
}

func NewLineWriter(emit func(line string)) *LineWriter {
	return &LineWriter{emit: emit}
}

// Write implements io.Writer, splitting p on '\n' and emitting each
// complete line. A trailing partial line is buffered until the next Write
// or Flush.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

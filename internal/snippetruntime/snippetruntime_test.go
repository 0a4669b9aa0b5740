package snippetruntime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/automationd/internal/wire"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Tracer) {
	t.Helper()
	tracer, err := NewTracer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Close() })
	return New(nil, NewDataStore(), tracer, nil), tracer
}

func TestSnippet_NeedToStartWithNoIncomingLinksEnqueuesStart(t *testing.T) {
	d, _ := newTestDispatcher(t)
	started := make(chan struct{}, 1)
	s := NewSnippet(1, "a", "", nil)
	d.Register(s, func(*Snippet) { started <- struct{}{} })
	s.InitLinks(nil)

	go d.Run()
	<-started
}

func TestDispatcher_TerminatesWhenAllSnippetsTerminate(t *testing.T) {
	d, _ := newTestDispatcher(t)
	a := NewSnippet(1, "a", "", nil)
	b := NewSnippet(2, "b", "", nil)
	d.Register(a, func(s *Snippet) { s.Done() })
	d.Register(b, func(s *Snippet) { s.Done() })
	a.InitLinks(nil)
	b.InitLinks(map[string]string{"a": wire.MsgDone})

	done := make(chan struct{})
	go func() { d.Run(); close(done) }()

	select {
	case <-done:
	case <-timeoutCh(t):
		t.Fatal("dispatcher never terminated")
	}
	require.Equal(t, wire.SnippetTerminated, a.State())
	require.Equal(t, wire.SnippetTerminated, b.State())
}

func TestSnippet_CancelPropagatesToSuccessors(t *testing.T) {
	d, _ := newTestDispatcher(t)
	a := NewSnippet(1, "a", "", nil)
	b := NewSnippet(2, "b", "", nil)
	d.Register(a, func(s *Snippet) {})
	d.Register(b, func(s *Snippet) {})
	a.InitLinks(nil)
	b.InitLinks(map[string]string{"a": wire.MsgDone})

	a.Cancel()
	require.Equal(t, wire.SnippetTerminated, a.State())
	require.Equal(t, wire.SnippetTerminated, b.State())
}

func TestDataStore_CaptureMergesNamedGroups(t *testing.T) {
	ds := NewDataStore()
	err := ds.Capture("build 42 ok", `build (?P<count>\d+) (?P<status>\w+)`)
	require.NoError(t, err)
	require.Equal(t, "42", ds.Get("count", nil))
	require.Equal(t, "ok", ds.Get("status", nil))
}

func TestDataStore_ResolveVariableChainsGlobalsAndCache(t *testing.T) {
	ds := NewDataStore()
	ds.Set("build_id", "build-7")
	globals := map[string]any{"host": "example.com"}

	v := ResolveVariable("https://${{globals.host}}/jobs/${{cache.build_id}}", globals, ds)
	require.Equal(t, "https://example.com/jobs/build-7", v)
}

func TestDataStore_ResolveVariableNonStringPassesThrough(t *testing.T) {
	ds := NewDataStore()
	require.Equal(t, 42, ResolveVariable(42, nil, ds))
}

func TestLineWriter_BuffersPartialLineUntilFlush(t *testing.T) {
	var lines []string
	w := NewLineWriter(func(l string) { lines = append(lines, l) })
	_, _ = w.Write([]byte("first\nsecond"))
	require.Equal(t, []string{"first"}, lines)
	w.Flush()
	require.Equal(t, []string{"first", "second"}, lines)
}

func TestTracer_WritesFormattedLines(t *testing.T) {
	dir := t.TempDir()
	tracer, err := NewTracer(dir)
	require.NoError(t, err)
	tracer.JobStarted()
	tracer.SnippetLog(1, "hello")
	require.NoError(t, tracer.Close())

	b, err := os.ReadFile(filepath.Join(dir, "job.log"))
	require.NoError(t, err)
	require.Contains(t, string(b), string(wire.KindJobStarted))
	require.Contains(t, string(b), "hello")
}

func timeoutCh(t *testing.T) <-chan struct{} {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		// generous bound: dispatcher work here is in-memory and synchronous
		// aside from goroutine scheduling, so this should never actually fire.
		<-time.After(2 * time.Second)
		close(ch)
	}()
	return ch
}

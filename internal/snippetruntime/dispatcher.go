// Package snippetruntime is the library linked into the runner binary
// (cmd/jobrunner): the JobHandler event loop, the Snippet DAG state
// machine, the process-wide DataStore, and the JobTracer log sink.
//
// Grounded directly on the original server's joblibrary package
// (jobhandler.py, jobsnippet.py, datastore.py, jobtracer.py) — there is no
// analogous code in the teacher, which has no per-run DAG runtime of its
// own; the teacher's internal/dispatch.Dispatcher contributes only the
// subprocess-protocol shape adapted in wrapper.go.
package snippetruntime

import (
	"log/slog"
	"sync"

	"github.com/mattjoyce/automationd/internal/wire"
)

// event is a single {snippet, message} pair queued for the dispatcher.
type event struct {
	snippet *Snippet
	message string
}

// Dispatcher is JobHandler: the single-threaded event loop that owns the
// registered snippet set and drains a FIFO of events.
type Dispatcher struct {
	Globals   map[string]any
	DataStore *DataStore
	Tracer    *Tracer
	logger    *slog.Logger

	mu       sync.Mutex
	snippets []*Snippet
	byName   map[string]*Snippet

	queueMu sync.Mutex
	queue   []event
	wake    chan struct{}
	done    chan struct{}
}

// New constructs a Dispatcher. globals is the workspace-scoped mapping
// resolved by ${{globals...}} substitution at runtime.
func New(globals map[string]any, store *DataStore, tracer *Tracer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Globals:   globals,
		DataStore: store,
		Tracer:    tracer,
		logger:    logger,
		byName:    make(map[string]*Snippet),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Register adds snippet to the dispatcher's set and binds bodyCallback as
// the function invoked (on its own goroutine) when the snippet starts.
func (d *Dispatcher) Register(s *Snippet, bodyCallback func(*Snippet)) {
	d.mu.Lock()
	s.dispatcher = d
	s.bodyCallback = bodyCallback
	d.snippets = append(d.snippets, s)
	d.byName[s.Name] = s
	d.mu.Unlock()
}

// GetSnippet looks up a registered snippet by name. Non-owning: callers
// must not assume exclusive access, only that the pointer is stable.
func (d *Dispatcher) GetSnippet(name string) *Snippet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byName[name]
}

// Enqueue pushes an event and wakes the dispatcher.
func (d *Dispatcher) Enqueue(s *Snippet, message string) {
	d.queueMu.Lock()
	d.queue = append(d.queue, event{snippet: s, message: message})
	d.queueMu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) drain() []event {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if len(d.queue) == 0 {
		return nil
	}
	out := d.queue
	d.queue = nil
	return out
}

// Run blocks until every snippet is TERMINATED, dispatching queued events
// as they arrive. message == "start" transitions CREATED->STARTED; any
// other message is routed to the snippet's own Trigger.
func (d *Dispatcher) Run() {
	for {
		for _, ev := range d.drain() {
			if ev.message == wire.MsgStart {
				ev.snippet.Start()
			} else {
				ev.snippet.Trigger(ev.message, true)
			}
		}
		if d.terminated() {
			return
		}
		<-d.wake
	}
}

// terminated implements the sum(states) == 2*N predicate: every snippet has
// reached TERMINATED. Preserve this algebra rather than per-state counters
// (spec.md §9 open question) — a snippet cancelled while CREATED (0->2) and
// one errored before ever starting (0->2) both contribute correctly.
func (d *Dispatcher) terminated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.snippets) == 0 {
		return true
	}
	sum := 0
	for _, s := range d.snippets {
		sum += int(s.State())
	}
	return sum == 2*len(d.snippets)
}

// RetCode is the job's aggregate return code: ERROR iff any snippet
// terminated with rc = ERROR.
func (d *Dispatcher) RetCode() wire.RetCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.snippets {
		if s.RetCode() == wire.RetError {
			return wire.RetError
		}
	}
	return wire.RetPass
}

// Snapshot returns the registered snippets in registration order, for
// building InitLinks at job-construction time.
func (d *Dispatcher) Snapshot() []*Snippet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Snippet(nil), d.snippets...)
}

package snippetruntime

import (
	"sync"
	"time"

	"github.com/mattjoyce/automationd/internal/wire"
)

// IncomingLink is a predecessor dependency: this snippet starts only once
// every incoming link is enabled.
type IncomingLink struct {
	From    string
	Message string
	Enabled bool
}

// OutgoingLink is a successor this snippet notifies when it fires message.
type OutgoingLink struct {
	To      string
	Message string
}

// Snippet is a DAG node: the per-run construction of a compiled snippet.
// Grounded on joblibrary/jobsnippet.py's Snippet class.
type Snippet struct {
	ID          int
	Name        string
	Description string
	Variables   map[string]any
	CreatedAt   time.Time

	dispatcher   *Dispatcher // non-owning back-reference, see spec.md §9
	bodyCallback func(*Snippet)

	mu       sync.Mutex
	state    wire.SnippetState
	retCode  wire.RetCode
	incoming []IncomingLink
	outgoing []OutgoingLink
}

// NewSnippet constructs a node in the CREATED state. Call InitLinks
// immediately after, mirroring the original's __init__ calling init_links
// then need_to_start() at construction time.
func NewSnippet(id int, name, description string, variables map[string]any) *Snippet {
	return &Snippet{
		ID:          id,
		Name:        name,
		Description: description,
		Variables:   variables,
		CreatedAt:   time.Now(),
	}
}

// InitLinks wires `when: {predecessor: message}` into both this snippet's
// incoming links and the referenced predecessor's outgoing links. Predecessor
// lookup goes through the dispatcher's set by name; an unknown predecessor is
// skipped with a log line rather than a panic (the original crashes here).
func (s *Snippet) InitLinks(when map[string]string) {
	for predecessor, message := range when {
		s.mu.Lock()
		s.incoming = append(s.incoming, IncomingLink{From: predecessor, Message: message})
		s.mu.Unlock()

		peer := s.dispatcher.GetSnippet(predecessor)
		if peer == nil {
			s.dispatcher.logger.Error("snippetruntime: unknown predecessor in when clause",
				"snippet", s.Name, "predecessor", predecessor)
			continue
		}
		peer.mu.Lock()
		peer.outgoing = append(peer.outgoing, OutgoingLink{To: s.Name, Message: message})
		peer.mu.Unlock()
	}
	s.NeedToStart()
}

// State returns the current lifecycle state.
func (s *Snippet) State() wire.SnippetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RetCode returns the snippet's terminal return code (zero value RetPass
// until Error is called).
func (s *Snippet) RetCode() wire.RetCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retCode
}

// NeedToStart enqueues a start event if every incoming link is satisfied
// (or there are none). No-op once TERMINATED.
func (s *Snippet) NeedToStart() {
	s.mu.Lock()
	if s.state == wire.SnippetTerminated {
		s.mu.Unlock()
		return
	}
	ready := true
	for _, l := range s.incoming {
		if !l.Enabled {
			ready = false
			break
		}
	}
	s.mu.Unlock()

	if ready {
		s.dispatcher.Enqueue(s, wire.MsgStart)
	}
}

// UpdateConds marks the incoming link from `from` as enabled.
func (s *Snippet) UpdateConds(from, message string) {
	s.mu.Lock()
	for i := range s.incoming {
		if s.incoming[i].From == from {
			s.incoming[i].Enabled = true
		}
	}
	s.mu.Unlock()
}

// Start transitions CREATED->STARTED and spawns the body goroutine. No-op
// once TERMINATED.
func (s *Snippet) Start() {
	s.mu.Lock()
	if s.state == wire.SnippetTerminated {
		s.mu.Unlock()
		return
	}
	s.state = wire.SnippetStarted
	s.mu.Unlock()

	go s.bodyCallback(s)
}

// Trigger is called by the dispatcher on the snippet that just emitted
// message. For each outgoing link whose message matches, the successor is
// enabled and asked to start; every other outgoing link is cancelled when
// cancelAll is true.
func (s *Snippet) Trigger(message string, cancelAll bool) {
	s.mu.Lock()
	outgoing := append([]OutgoingLink(nil), s.outgoing...)
	s.mu.Unlock()

	for _, link := range outgoing {
		successor := s.dispatcher.GetSnippet(link.To)
		if successor == nil {
			continue
		}
		if link.Message == message {
			successor.UpdateConds(s.Name, message)
			successor.NeedToStart()
		} else if cancelAll {
			successor.Cancel()
		}
	}
}

// Cancel marks this snippet TERMINATED and recursively cancels every
// outgoing successor. No event is enqueued.
func (s *Snippet) Cancel() {
	s.mu.Lock()
	if s.state == wire.SnippetTerminated {
		s.mu.Unlock()
		return
	}
	s.state = wire.SnippetTerminated
	outgoing := append([]OutgoingLink(nil), s.outgoing...)
	s.mu.Unlock()

	for _, link := range outgoing {
		if successor := s.dispatcher.GetSnippet(link.To); successor != nil {
			successor.Cancel()
		}
	}
}

// Done marks this snippet TERMINATED with rc = PASS (unless Error already
// ran) and enqueues a "done" event, which the dispatcher routes back to
// this snippet's own Trigger.
func (s *Snippet) Done() {
	s.mu.Lock()
	if s.state == wire.SnippetTerminated {
		s.mu.Unlock()
		return
	}
	s.state = wire.SnippetTerminated
	s.mu.Unlock()

	s.dispatcher.Enqueue(s, wire.MsgDone)
}

// Error logs a snippet-error line, sets rc = ERROR, marks TERMINATED, and
// enqueues a "failure" event.
func (s *Snippet) Error(message string) {
	s.dispatcher.Tracer.SnippetError(s.ID, message)

	s.mu.Lock()
	s.retCode = wire.RetError
	s.state = wire.SnippetTerminated
	s.mu.Unlock()

	s.dispatcher.Enqueue(s, wire.MsgFailure)
}

// Emit is a user-visible soft signal: Trigger(message, cancelAll=false),
// called synchronously on the caller's own goroutine rather than queued —
// see spec.md §4.F and the worked example in joblibrary/jobsnippet.py.
func (s *Snippet) Emit(message string) {
	s.Trigger(message, false)
}

// Begin logs the snippet-begin line.
func (s *Snippet) Begin() {
	s.dispatcher.Tracer.SnippetBegin(s.ID, s.Description)
}

// Ending logs the snippet-ending line with the final state and duration.
func (s *Snippet) Ending(duration time.Duration) {
	state := wire.StateSuccess
	if s.RetCode() == wire.RetError {
		state = wire.StateFailure
	}
	s.dispatcher.Tracer.SnippetEnding(s.ID, state, duration.Seconds())
}

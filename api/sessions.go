package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/wizard"
)

// Session kinds
const (
	kindReport = "report"
	kindRoute  = "route"
	kindMap    = "map"
)

// wizardScreen is what the issue-report and route-recording screens share
type wizardScreen interface {
	SessionID() string
	Wizard() *walkflow.Wizard
	State() walkflow.WorkflowState
	CurrentStep() *walkflow.Step
	Fields() map[string]json.RawMessage
	Exited() bool
	ExitReason() walkflow.ExitReason
	CanUndo() bool
	CanAdvance() bool
	LastValidation() *walkflow.ValidationError

	Advance() error
	Retreat() error
	Undo() (bool, error)
	RequestCancel() (wizard.CancelOutcome, error)
	ConfirmCancel() error
	DismissCancel() error
	Submit() (*walkflow.Submission, error)
}

// session is one open screen. Handlers hold mu for the whole request.
type session struct {
	mu        sync.Mutex
	id        string
	kind      string
	screen    any
	createdAt time.Time

	// Set by the exit router when the submission could not be stored
	exitErr error
}

// registry maps session IDs to open screens
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// get returns the session if it exists and is of the given kind
func (r *registry) get(id, kind string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.kind != kind {
		return nil, false
	}
	return s, true
}

func (r *registry) remove(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// drain removes and returns every session
func (r *registry) drain() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

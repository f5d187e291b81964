package payment

import "sync"

// Session tracks the orchestrator's state for one payment attempt.
type Session struct {
	ID        string
	Window    Window
	Callbacks Callbacks

	// complete records that the in-band success path delivered the outcome.
	complete bool
	// claimed records that some path reserved the terminal outcome. It only
	// ever transitions false -> true, under the registry mutex.
	claimed bool
}

// Registry is the in-memory store of active sessions keyed by transaction id.
// It is shared between the orchestrator, the message listener and the close
// watchers, so every operation takes the mutex; the Claim operation is the
// check-then-act critical section that makes resolution exactly-once.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session under id. Ids are unique per orchestrator
// lifetime, so an existing entry is never silently replaced.
func (r *Registry) Create(id string, cb Callbacks) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Session{ID: id, Callbacks: cb}
	r.sessions[id] = s
	return s
}

// Get reports whether a session is still active. Absence is not an error: it
// is the signal that the session already resolved through another path.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// MarkWindow records the launched window handle. The handle is set once,
// right after a successful launch, and never mutated afterwards.
func (r *Registry) MarkWindow(id string, w Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Window = w
	}
}

// MarkComplete flags that the in-band success path delivered the outcome, so
// the close watcher only needs to garbage-collect the entry.
func (r *Registry) MarkComplete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.complete = true
	}
}

// Claim reserves the exclusive right to deliver the session's terminal
// outcome and returns the callbacks to invoke. It fails when the session is
// absent or some other path already claimed it; callers must treat a failed
// claim as "already resolved, do nothing".
func (r *Registry) Claim(id string) (Callbacks, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.claimed {
		return Callbacks{}, false
	}
	s.claimed = true
	return s.Callbacks, true
}

// Remove deletes the session and reports whether it was still present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Clear drops every session without invoking callbacks and returns how many
// were dropped. Used by the unconditional teardown path.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.sessions)
	r.sessions = make(map[string]*Session)
	return n
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

package session

import (
	"errors"
	"sync"

	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

var (
	ErrSessionNotFound = errors.New("editor session not found")
	ErrForbidden       = errors.New("editor session belongs to another operator")
)

// Registry holds the sessions open in this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*editor.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*editor.Session)}
}

// Put stores s, replacing any session with the same ID.
func (r *Registry) Put(s *editor.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// GetOrPut stores s unless a session with the same ID is already held, and returns the
// held session. inserted is false when s was discarded.
func (r *Registry) GetOrPut(s *editor.Session) (held *editor.Session, inserted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID()]; ok {
		return cur, false
	}
	r.sessions[s.ID()] = s
	return s, true
}

// Get returns the session with the given ID when operator owns it.
func (r *Registry) Get(id, operator string) (*editor.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Operator() != operator {
		return nil, ErrForbidden
	}
	return s, nil
}

// Delete drops the session and reports whether it was present.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// DeleteIf drops the session when drop reports true for it. drop runs under the
// registry lock, so no lookup can hand the session out while it is being judged.
func (r *Registry) DeleteIf(id string, drop func(*editor.Session) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !drop(s) {
		return false
	}
	delete(r.sessions, id)
	return true
}

// All returns the open sessions in no particular order.
func (r *Registry) All() []*editor.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*editor.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Package session implements the in-memory call-session registry. Sessions
// live only for the process lifetime; there is no cross-instance state.
package session

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid"
)

// Turn is one (role, text) entry in a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the live state of one ongoing voice interaction. History is
// append-only while the session lives; windowing happens at read time.
type Session struct {
	ID         string
	PersonaKey string
	CreatedAt  time.Time
	LastSeenAt time.Time

	turnMu  sync.Mutex
	history []Turn
}

// LockTurn serializes think-calls on this session. Distinct sessions run
// fully concurrently.
func (s *Session) LockTurn()   { s.turnMu.Lock() }
func (s *Session) UnlockTurn() { s.turnMu.Unlock() }

// AppendTurn adds one history entry. Callers hold the turn lock during a
// think-call, so appends within a turn are ordered.
func (s *Session) AppendTurn(role, content string) {
	s.history = append(s.history, Turn{Role: role, Content: content})
}

// Window returns the most recent n turns in original order. The stored
// history is not mutated.
func (s *Session) Window(n int) []Turn {
	if n <= 0 || len(s.history) == 0 {
		return nil
	}
	start := 0
	if len(s.history) > n {
		start = len(s.history) - n
	}
	out := make([]Turn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// HistoryLen returns the total number of stored turns.
func (s *Session) HistoryLen() int {
	return len(s.history)
}

// Registry maps call ids to sessions. All operations are safe under
// concurrent create/get/close/sweep from multiple request handlers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		clock:    time.Now,
	}
}

// Create registers a session for id, replacing any existing one
// (last-create-wins, no merge). An empty id gets a generated one.
func (r *Registry) Create(id, personaKey string) *Session {
	if id == "" {
		id = gonanoid.MustID(21)
	}
	now := r.clock()
	s := &Session{
		ID:         id,
		PersonaKey: personaKey,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id and touches its LastSeenAt.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.LastSeenAt = r.clock()
	return s, true
}

// Close removes the session for id, reporting whether one existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return ok
}

// Sweep evicts every session idle for longer than maxAge and returns the
// number removed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastSeenAt) > maxAge {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

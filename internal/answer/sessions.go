package answer

import (
	"sync"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// session pairs one conversation's dialogue memory with the mutex that
// serialises access to it (§5: "access is serialised by a per-session
// mutex with the critical section limited to append+evict").
type session struct {
	mu     sync.Mutex
	memory domain.DialogueMemory
}

// Sessions is the registry of per-session dialogue memories, keyed by
// an opaque session id supplied by the caller. The registry's own
// mutex guards only map access; it is never held during a Generator
// call.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*session)}
}

func (s *Sessions) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// Clear empties one session's dialogue memory.
func (s *Sessions) Clear(id string) {
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.memory.Clear()
}

// Turns returns a copy of one session's stored turns, oldest first.
func (s *Sessions) Turns(id string) []domain.Turn {
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.memory.Turns()
}

package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound reports a lookup for an id no live session carries.
	ErrNotFound = errors.New("session: not found")

	// ErrDuplicateID reports an insert that would shadow a live session.
	ErrDuplicateID = errors.New("session: duplicate id")
)

// Store is the process-wide registry of live sessions. All methods are safe
// for concurrent use; All returns a snapshot so the reaper can iterate while
// dispatchers mutate.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Insert registers a session. The id must not be live.
func (s *Store) Insert(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, sess.ID)
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Find looks a session up by id.
func (s *Store) Find(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Remove drops the session if present. Removing an absent id is a no-op, so
// an explicit close racing the reaper degrades to a harmless double-close.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// All returns a snapshot of every live session.
func (s *Store) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Package inmem provides an in-memory implementation of history.Store for
// testing and local development. Data is stored in process memory and is
// lost when the process exits. Production deployments should use a durable
// backend such as features/history/mongo (MongoDB-backed implementation).
package inmem

import (
	"context"
	"sync"

	"github.com/jarz-ai/a2ui-go/history"
)

// Store implements history.Store using an in-process map keyed by session
// ID. It is thread-safe and suitable for tests and local development. Data
// is not persisted across restarts.
//
// All operations defensively copy turn slices so callers cannot mutate the
// store through returned values.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]history.Turn
}

// New returns a new in-memory store with no sessions. The store is ready to
// use immediately and requires no initialization or cleanup.
func New() *Store {
	return &Store{sessions: make(map[string][]history.Turn)}
}

// Append appends the provided turns to the session history. Turns are copied
// defensively so callers cannot mutate the internal store. If turns is
// empty, this is a no-op.
func (s *Store) Append(_ context.Context, sessionID string, turns ...history.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	copied := make([]history.Turn, len(turns))
	copy(copied, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], copied...)
	return nil
}

// List retrieves the session's turns in append order. Returns an empty slice
// (not an error) if the session doesn't exist, allowing callers to treat
// absence as empty history. The returned slice is a defensive copy.
func (s *Store) List(_ context.Context, sessionID string) ([]history.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	cloned := make([]history.Turn, len(turns))
	copy(cloned, turns)
	return cloned, nil
}

// Clear removes all turns of the session. Clearing an unknown session is a
// no-op.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Reset clears all stored turns across all sessions. Primarily useful in
// tests to reset state between test cases.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]history.Turn)
}

package scene

import "sync"

// Store holds the session's correspondence list. The processing
// orchestrator is its only writer; readers get defensive copies.
type Store struct {
	mu      sync.RWMutex
	matches []Match
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps the whole list in one step. Runs never merge into
// each other: each successful run discards the previous result.
func (s *Store) ReplaceAll(matches []Match) {
	cp := make([]Match, len(matches))
	copy(cp, matches)

	s.mu.Lock()
	s.matches = cp
	s.mu.Unlock()
}

func (s *Store) List() []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]Match, len(s.matches))
	copy(cp, s.matches)
	return cp
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

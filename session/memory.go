package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Sessions vanish when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]State),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.sessions[userID]
	state.Selected = append([]int(nil), state.Selected...)
	return state, nil
}

func (s *MemoryStore) Set(_ context.Context, userID int64, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Empty() {
		delete(s.sessions, userID)
		return nil
	}
	state.Selected = append([]int(nil), state.Selected...)
	s.sessions[userID] = state
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

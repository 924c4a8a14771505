package auth

import (
	"sync"
	"tradebot/internal/core"
)

// MemoryStore implements core.ISessionStore in memory
type MemoryStore struct {
	sessions map[uint64]core.Session
	mu       sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uint64]core.Session),
	}
}

func (s *MemoryStore) Save(accountRef uint64, session core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[accountRef] = session
	return nil
}

func (s *MemoryStore) Load(accountRef uint64) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[accountRef]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

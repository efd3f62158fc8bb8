package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// sweepInterval bounds how often Create scans for expired sessions.
const sweepInterval = time.Minute

// MemoryStore is an in-process Store used when Redis is unavailable.
// Sessions do not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	ttl       time.Duration
	sessions  map[string]Record
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]Record),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, userID uint) (string, Record, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", Record{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now()
	rec := newRecord(userID, now, s.ttl)

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}
	s.sessions[HashToken(token)] = rec
	s.mu.Unlock()

	return token, rec, nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrSessionNotFound
	}
	h := HashToken(token)

	s.mu.RLock()
	rec, ok := s.sessions[h]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	if rec.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, h)
		s.mu.Unlock()
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.sessions, HashToken(token))
	s.mu.Unlock()
	return nil
}

// sweepLocked drops every expired session. Abandoned tokens are never read
// again, so Get alone would keep them forever.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for h, rec := range s.sessions {
		if rec.Expired(now) {
			delete(s.sessions, h)
		}
	}
	s.lastSweep = now
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

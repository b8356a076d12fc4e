/**
 * @description
 * This file implements the in-memory store for transaction-history
 * pagination sessions. A session pins the filter and position of one history
 * browse so that "next page" and "previous page" need nothing but the opaque
 * session handle.
 *
 * @notes
 * - Sessions expire on a TTL; an expired session behaves like a missing one
 *   and the caller is told to start a fresh history request.
 */

package app

import (
	"context"
	"sync"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

// SessionStore holds active pagination sessions keyed by opaque handle.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.PaginationSession
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store with the given time-to-live. A
// zero or negative TTL disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.PaginationSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put registers a session under its handle.
func (s *SessionStore) Put(session *domain.PaginationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Handle] = session
}

// WithSession runs fn with exclusive access to the session for the handle.
// It returns ErrNoActiveSession when the handle is unknown or expired.
func (s *SessionStore) WithSession(handle string, fn func(session *domain.PaginationSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[handle]
	if ok && s.expired(session) {
		delete(s.sessions, handle)
		ok = false
	}
	if !ok {
		return ErrNoActiveSession
	}
	err := fn(session)
	session.UpdatedAt = s.now()
	return err
}

// Delete removes a session outright.
func (s *SessionStore) Delete(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, handle)
}

// Len reports how many sessions are active.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(session *domain.PaginationSession) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(session.UpdatedAt) > s.ttl
}

// Sweep drops every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for handle, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, handle)
			removed++
		}
	}
	return removed
}

// RunSweeper reaps expired sessions on the given interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

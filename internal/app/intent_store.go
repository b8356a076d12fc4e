/**
 * @description
 * This file implements the in-memory store for in-flight transfer intents.
 * Each intent is exclusively owned by one conversation session; concurrent
 * turns for the same session are serialized through a per-intent mutex so the
 * intent is never mutated by two turns at once, while turns for different
 * sessions proceed independently.
 *
 * @notes
 * - Intents carry a TTL. An expired intent behaves exactly like a missing
 *   one: the caller sees "no pending transaction". Expired entries are also
 *   reaped by a periodic sweep started from main.
 */

package app

import (
	"context"
	"sync"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

type intentEntry struct {
	mu     sync.Mutex
	intent *domain.TransferIntent
}

// IntentStore holds in-flight transfer intents keyed by opaque handle.
type IntentStore struct {
	mu      sync.Mutex
	entries map[string]*intentEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewIntentStore creates an intent store with the given time-to-live. A zero
// or negative TTL disables expiry.
func NewIntentStore(ttl time.Duration) *IntentStore {
	return &IntentStore{
		entries: make(map[string]*intentEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put registers a new intent under its handle.
func (s *IntentStore) Put(intent *domain.TransferIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[intent.Handle] = &intentEntry{intent: intent}
}

// WithIntent runs fn with exclusive access to the intent for the handle.
// It returns ErrNoPendingTransaction when the handle is unknown, expired, or
// already committed/cancelled. If fn deletes the intent (commit, cancel) it
// must return true as its second result.
func (s *IntentStore) WithIntent(handle string, fn func(intent *domain.TransferIntent) (error, bool)) error {
	s.mu.Lock()
	entry, ok := s.entries[handle]
	if ok && s.expired(entry.intent) {
		delete(s.entries, handle)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return ErrNoPendingTransaction
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// The entry may have been deleted between the lookup and taking its lock.
	s.mu.Lock()
	_, stillThere := s.entries[handle]
	s.mu.Unlock()
	if !stillThere {
		return ErrNoPendingTransaction
	}

	err, deleted := fn(entry.intent)
	if deleted {
		s.mu.Lock()
		delete(s.entries, handle)
		s.mu.Unlock()
	} else {
		entry.intent.UpdatedAt = s.now()
	}
	return err
}

// Delete removes an intent outright.
func (s *IntentStore) Delete(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, handle)
}

// Len reports how many intents are currently in flight.
func (s *IntentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *IntentStore) expired(intent *domain.TransferIntent) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(intent.UpdatedAt) > s.ttl
}

// Sweep drops every expired intent and returns how many were removed.
func (s *IntentStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for handle, entry := range s.entries {
		if s.expired(entry.intent) {
			delete(s.entries, handle)
			removed++
		}
	}
	return removed
}

// RunSweeper reaps expired intents on the given interval until ctx is done.
func (s *IntentStore) RunSweeper(ctx context.Context, interval time.Duration) {
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

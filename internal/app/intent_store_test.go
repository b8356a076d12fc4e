package app

import (
	"errors"
	"testing"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

func TestIntentStore_SweepRemovesOnlyExpired(t *testing.T) {
	store := NewIntentStore(5 * time.Minute)
	now := time.Now()

	store.Put(&domain.TransferIntent{Handle: "fresh", UpdatedAt: now})
	store.Put(&domain.TransferIntent{Handle: "stale", UpdatedAt: now.Add(-10 * time.Minute)})

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept intent, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 surviving intent, got %d", store.Len())
	}
	if err := store.WithIntent("stale", func(*domain.TransferIntent) (error, bool) { return nil, false }); !errors.Is(err, ErrNoPendingTransaction) {
		t.Fatalf("expected ErrNoPendingTransaction for swept intent, got %v", err)
	}
}

func TestIntentStore_DeletionInsideFn(t *testing.T) {
	store := NewIntentStore(0)
	store.Put(&domain.TransferIntent{Handle: "h1"})

	err := store.WithIntent("h1", func(*domain.TransferIntent) (error, bool) { return nil, true })
	if err != nil {
		t.Fatalf("WithIntent returned error: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after deletion, got %d", store.Len())
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

func newTestPaginator(repo *memoryRepo) (*HistoryPaginator, *SessionStore) {
	sessions := NewSessionStore(30 * time.Minute)
	paginator := NewHistoryPaginator(repo, sessions, NewAuditor(repo, nil))
	return paginator, sessions
}

// seedLedger writes n alternating entries against acc-1, one per day counting
// back from now.
func seedLedger(repo *memoryRepo, n int) {
	now := time.Now()
	balance := int64(500000)
	for i := 0; i < n; i++ {
		entryType := domain.EntryDebit
		if i%2 == 0 {
			entryType = domain.EntryCredit
		}
		repo.addLedgerEntry("acc-1", now.AddDate(0, 0, -i), entryType, fmt.Sprintf("entry %d", i), 1000, balance)
		balance -= 1000
	}
}

func TestHistoryPaginator_PagesRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	seedLedger(repo, 12)
	paginator, _ := newTestPaginator(repo)
	ctx := context.Background()

	page, err := paginator.GetTransactionHistory(ctx, "user-1", "savings", "last month", "", "", 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}
	if page.Pagination.TotalItems != 12 || page.Pagination.TotalPages != 3 {
		t.Fatalf("expected 12 items over 3 pages, got %d/%d", page.Pagination.TotalItems, page.Pagination.TotalPages)
	}
	if len(page.Entries) != domain.HistoryPageSize {
		t.Fatalf("expected %d entries on page one, got %d", domain.HistoryPageSize, len(page.Entries))
	}
	if page.Pagination.ShowingRange != "Showing 1-5 of 12" {
		t.Fatalf("unexpected showing range %q", page.Pagination.ShowingRange)
	}
	if !page.Pagination.HasNext || page.Pagination.HasPrevious {
		t.Fatalf("unexpected navigation flags on page one: %+v", page.Pagination)
	}
	// Newest entry first.
	if page.Entries[0].Description != "entry 0" {
		t.Fatalf("expected newest entry first, got %q", page.Entries[0].Description)
	}

	handle := page.Pagination.SessionID

	page, err = paginator.NextPage(ctx, "user-1", handle)
	if err != nil {
		t.Fatalf("NextPage returned error: %v", err)
	}
	if page.Pagination.CurrentPage != 2 || page.Pagination.ShowingRange != "Showing 6-10 of 12" {
		t.Fatalf("unexpected page two: %+v", page.Pagination)
	}

	page, err = paginator.NextPage(ctx, "user-1", handle)
	if err != nil {
		t.Fatalf("NextPage to last returned error: %v", err)
	}
	if len(page.Entries) != 2 || page.Pagination.ShowingRange != "Showing 11-12 of 12" {
		t.Fatalf("unexpected last page: %+v", page.Pagination)
	}
	if page.Pagination.HasNext {
		t.Fatal("expected HasNext=false on the last page")
	}

	// Past the end.
	if _, err := paginator.NextPage(ctx, "user-1", handle); !errors.Is(err, ErrAlreadyOnLastPage) {
		t.Fatalf("expected ErrAlreadyOnLastPage, got %v", err)
	}

	// Walk back to page one, then past the start.
	if _, err := paginator.PreviousPage(ctx, "user-1", handle); err != nil {
		t.Fatalf("PreviousPage returned error: %v", err)
	}
	page, err = paginator.PreviousPage(ctx, "user-1", handle)
	if err != nil {
		t.Fatalf("PreviousPage to first returned error: %v", err)
	}
	if page.Pagination.CurrentPage != 1 {
		t.Fatalf("expected page one, got %d", page.Pagination.CurrentPage)
	}
	if _, err := paginator.PreviousPage(ctx, "user-1", handle); !errors.Is(err, ErrAlreadyOnFirstPage) {
		t.Fatalf("expected ErrAlreadyOnFirstPage, got %v", err)
	}
}

func TestHistoryPaginator_ClampsRequestedPage(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	seedLedger(repo, 7)
	paginator, _ := newTestPaginator(repo)

	page, err := paginator.GetTransactionHistory(context.Background(), "user-1", "savings", "", "", "", 99)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}
	if page.Pagination.CurrentPage != 2 {
		t.Fatalf("expected clamp to last page 2, got %d", page.Pagination.CurrentPage)
	}
}

func TestHistoryPaginator_UnknownSession(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	paginator, _ := newTestPaginator(repo)

	if _, err := paginator.NextPage(context.Background(), "user-1", "no-such-session"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestHistoryPaginator_SessionScopedToOwner(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	seedLedger(repo, 8)
	paginator, _ := newTestPaginator(repo)
	ctx := context.Background()

	page, err := paginator.GetTransactionHistory(ctx, "user-1", "savings", "", "", "", 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}
	handle := page.Pagination.SessionID

	// Another caller holding the handle must not be able to use it, and
	// must not be able to tell it exists.
	if _, err := paginator.NextPage(ctx, "user-2", handle); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for foreign caller, got %v", err)
	}
	if _, err := paginator.PreviousPage(ctx, "user-2", handle); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for foreign caller, got %v", err)
	}

	// The owner's session is unaffected.
	page, err = paginator.NextPage(ctx, "user-1", handle)
	if err != nil {
		t.Fatalf("NextPage for owner returned error: %v", err)
	}
	if page.Pagination.CurrentPage != 2 {
		t.Fatalf("expected page 2 for owner, got %d", page.Pagination.CurrentPage)
	}
}

func TestHistoryPaginator_StorageFaultKeepsCursor(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	seedLedger(repo, 12)
	paginator, _ := newTestPaginator(repo)
	ctx := context.Background()

	page, err := paginator.GetTransactionHistory(ctx, "user-1", "savings", "last month", "", "", 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}
	handle := page.Pagination.SessionID

	repo.mu.Lock()
	repo.listLedgerErr = errors.New("connection reset")
	repo.mu.Unlock()

	if _, err := paginator.NextPage(ctx, "user-1", handle); err == nil {
		t.Fatal("expected storage error from NextPage")
	}

	repo.mu.Lock()
	repo.listLedgerErr = nil
	repo.mu.Unlock()

	// The failed navigation must not have advanced the cursor.
	page, err = paginator.NextPage(ctx, "user-1", handle)
	if err != nil {
		t.Fatalf("NextPage after recovery returned error: %v", err)
	}
	if page.Pagination.CurrentPage != 2 {
		t.Fatalf("expected page 2 after recovery, got %d", page.Pagination.CurrentPage)
	}
}

func TestHistoryPaginator_SessionExpiry(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	seedLedger(repo, 8)
	paginator, sessions := newTestPaginator(repo)
	ctx := context.Background()

	page, err := paginator.GetTransactionHistory(ctx, "user-1", "savings", "", "", "", 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}

	sessions.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := paginator.NextPage(ctx, "user-1", page.Pagination.SessionID); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for expired session, got %v", err)
	}
}

func TestHistoryPaginator_EmptyResult(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	paginator, _ := newTestPaginator(repo)

	page, err := paginator.GetTransactionHistory(context.Background(), "user-1", "savings", "last week", "", "", 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory returned error: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(page.Entries))
	}
	if page.Message != "No transactions found in the selected period." {
		t.Fatalf("unexpected empty-result message %q", page.Message)
	}
}

func TestHistoryPaginator_RangeCapRejectedBeforeQuery(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	paginator, _ := newTestPaginator(repo)

	var tooWide *RangeTooWideError
	_, err := paginator.GetTransactionHistory(context.Background(), "user-1", "savings", "last 6 months", "", "", 0)
	if !errors.As(err, &tooWide) {
		t.Fatalf("expected RangeTooWideError, got %v", err)
	}
	if tooWide.RequestedDays != 180 {
		t.Fatalf("expected 180 requested days, got %d", tooWide.RequestedDays)
	}
}

func TestHistoryPaginator_NoMatchingAccount(t *testing.T) {
	repo := newMemoryRepo()
	seedAccounts(repo)
	paginator, _ := newTestPaginator(repo)

	if _, err := paginator.GetTransactionHistory(context.Background(), "user-1", "salary loan", "", "", "", 0); !errors.Is(err, ErrNoMatchingAccount) {
		t.Fatalf("expected ErrNoMatchingAccount, got %v", err)
	}
}

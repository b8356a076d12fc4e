/**
 * @description
 * This file implements the transaction history paginator. The first query
 * resolves an account and a date range, snapshots the result size into a
 * pagination session, and returns page one plus an opaque handle. Follow-up
 * "next page" and "previous page" turns carry nothing but that handle; the
 * session remembers the filter and the cursor.
 *
 * @notes
 * - Pages are fixed at five entries, newest first.
 * - An out-of-range requested page is clamped into the valid range rather
 *   than rejected.
 * - Navigation past either boundary returns a distinct, stable error so the
 *   conversational layer can phrase it.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// HistoryPaginator serves paged transaction history backed by pagination
// sessions.
type HistoryPaginator struct {
	repo     store.Repository
	sessions *SessionStore
	audit    *Auditor
	now      func() time.Time
}

// NewHistoryPaginator creates the paginator.
func NewHistoryPaginator(repo store.Repository, sessions *SessionStore, audit *Auditor) *HistoryPaginator {
	return &HistoryPaginator{
		repo:     repo,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
	}
}

// GetTransactionHistory starts a history browse. The account filter matches
// the same way the balance check does; the period is either a relative
// phrase or explicit start/end dates. The requested page is clamped into the
// valid range.
func (h *HistoryPaginator) GetTransactionHistory(ctx context.Context, userID, accountFilter, period, startDate, endDate string, page int) (*domain.HistoryPage, error) {
	dateRange, err := ResolveDateRange(period, startDate, endDate, h.now())
	if err != nil {
		return nil, err
	}

	account, err := h.resolveAccount(ctx, userID, accountFilter)
	if err != nil {
		return nil, err
	}

	entries, err := h.repo.ListLedgerEntries(ctx, account.ID, dateRange)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return &domain.HistoryPage{
			AccountName:   account.DisplayName(),
			AccountSpeech: SpeechName(*account),
			Entries:       []domain.LedgerEntry{},
			Range:         dateRange,
			Message:       "No transactions found in the selected period.",
		}, nil
	}

	session := &domain.PaginationSession{
		Handle:      uuid.NewString(),
		UserID:      userID,
		AccountID:   account.ID,
		Range:       dateRange,
		PageSize:    domain.HistoryPageSize,
		TotalItems:  len(entries),
		TotalPages:  totalPages(len(entries), domain.HistoryPageSize),
		CurrentPage: clampPage(page, totalPages(len(entries), domain.HistoryPageSize)),
		CreatedAt:   h.now(),
		UpdatedAt:   h.now(),
	}
	h.sessions.Put(session)
	h.audit.HistoryViewed(ctx, userID, account.ID, session.Handle)

	return h.buildPage(account, entries, session), nil
}

// NextPage advances an existing session by one page.
func (h *HistoryPaginator) NextPage(ctx context.Context, userID, handle string) (*domain.HistoryPage, error) {
	return h.navigate(ctx, userID, handle, +1)
}

// PreviousPage steps an existing session back by one page.
func (h *HistoryPaginator) PreviousPage(ctx context.Context, userID, handle string) (*domain.HistoryPage, error) {
	return h.navigate(ctx, userID, handle, -1)
}

func (h *HistoryPaginator) navigate(ctx context.Context, userID, handle string, delta int) (*domain.HistoryPage, error) {
	var page *domain.HistoryPage
	err := h.sessions.WithSession(handle, func(session *domain.PaginationSession) error {
		// A session handle held by the wrong caller is indistinguishable
		// from an unknown one.
		if session.UserID != userID {
			return ErrNoActiveSession
		}
		next := session.CurrentPage + delta
		if next < 1 {
			return ErrAlreadyOnFirstPage
		}
		if next > session.TotalPages {
			return ErrAlreadyOnLastPage
		}

		account, err := h.repo.GetAccount(ctx, session.AccountID, session.UserID)
		if err != nil {
			return err
		}
		entries, err := h.repo.ListLedgerEntries(ctx, session.AccountID, session.Range)
		if err != nil {
			return err
		}
		// The backing data may have shrunk since the session was created.
		// The session is only mutated once both queries have succeeded, so
		// a storage fault never leaves the cursor advanced.
		session.TotalItems = len(entries)
		session.TotalPages = totalPages(len(entries), session.PageSize)
		session.CurrentPage = clampPage(next, session.TotalPages)

		page = h.buildPage(account, entries, session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (h *HistoryPaginator) buildPage(account *domain.Account, entries []domain.LedgerEntry, session *domain.PaginationSession) *domain.HistoryPage {
	start := (session.CurrentPage - 1) * session.PageSize
	end := start + session.PageSize
	if end > len(entries) {
		end = len(entries)
	}
	if start > len(entries) {
		start = len(entries)
	}

	return &domain.HistoryPage{
		AccountName:   account.DisplayName(),
		AccountSpeech: SpeechName(*account),
		Entries:       entries[start:end],
		Range:         session.Range,
		Pagination: domain.Pagination{
			SessionID:    session.Handle,
			CurrentPage:  session.CurrentPage,
			TotalPages:   session.TotalPages,
			TotalItems:   session.TotalItems,
			ShowingRange: fmt.Sprintf("Showing %d-%d of %d", start+1, end, session.TotalItems),
			HasNext:      session.CurrentPage < session.TotalPages,
			HasPrevious:  session.CurrentPage > 1,
		},
	}
}

// resolveAccount mirrors the balance-check matcher: an exact id wins,
// otherwise the filter is matched against type, name and number.
func (h *HistoryPaginator) resolveAccount(ctx context.Context, userID, filter string) (*domain.Account, error) {
	if filter != "" {
		if acc, err := h.repo.GetAccount(ctx, filter, userID); err == nil {
			return acc, nil
		}
	}
	accounts, err := h.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if filter == "" {
		return &accounts[0], nil
	}
	matched := filterAccounts(accounts, filter)
	if len(matched) == 0 {
		return nil, ErrNoMatchingAccount
	}
	return &matched[0], nil
}

func totalPages(items, pageSize int) int {
	if items == 0 {
		return 0
	}
	return (items + pageSize - 1) / pageSize
}

func clampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if total > 0 && page > total {
		return total
	}
	return page
}

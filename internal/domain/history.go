/**
 * @description
 * This file defines the transaction history domain models: the date-range
 * filter, the pagination session addressed by an opaque handle, and the page
 * shape returned to callers.
 */

package domain

import (
	"math"
	"time"
)

// HistoryPageSize is the fixed number of ledger entries per page.
const HistoryPageSize = 5

// HistoryRangeCapDays caps how far back a single history query may reach.
const HistoryRangeCapDays = 90

// DateRange is a resolved, inclusive date filter.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the span of the range in days. A partial trailing day counts
// as a full one, so an inclusive calendar range of 91 days reports 91 even
// though its end timestamp stops a nanosecond short of midnight.
func (r DateRange) Days() int {
	return int(math.Ceil(r.End.Sub(r.Start).Hours() / 24))
}

// PaginationSession is the server-side state behind a pagination handle. It
// is created on the first history query and mutated only by next/previous
// navigation, so a "next page" utterance never needs to restate the filter.
type PaginationSession struct {
	Handle      string
	UserID      string
	AccountID   string
	Range       DateRange
	PageSize    int
	TotalItems  int
	TotalPages  int
	CurrentPage int // 1-based
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Pagination is the caller-facing navigation metadata for one page.
type Pagination struct {
	SessionID    string `json:"session_id"`
	CurrentPage  int    `json:"current_page"`
	TotalPages   int    `json:"total_pages"`
	TotalItems   int    `json:"total_transactions"`
	ShowingRange string `json:"showing,omitempty"` // "Showing X-Y of Z"
	HasNext      bool   `json:"has_next"`
	HasPrevious  bool   `json:"has_previous"`
}

// HistoryPage is one page of ledger entries plus everything the caller needs
// to speak the result and navigate from it.
type HistoryPage struct {
	AccountName   string        `json:"account_name"`   // display form
	AccountSpeech string        `json:"account_speech"` // speech-safe form
	Entries       []LedgerEntry `json:"transactions"`
	Range         DateRange     `json:"date_range"`
	Pagination    Pagination    `json:"pagination"`
	Message       string        `json:"message,omitempty"` // set for the no-result case
}

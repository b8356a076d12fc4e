/**
 * @description
 * This file defines the ledger domain models. The ledger is the append-only
 * record of postings against an account; entries are created only by the
 * commit step of a transfer (or by seeding) and are never mutated or deleted.
 */

package domain

import "time"

// Ledger entry directions.
const (
	EntryCredit = "credit"
	EntryDebit  = "debit"
)

// LedgerEntry is one posting against an account. Ordering is by creation
// order; same-date entries tie-break on insertion order so "most recent
// first" listings and page slices stay stable.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	AccountID    string    `json:"account_id"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"` // 'credit' or 'debit'
	Description  string    `json:"description"`
	Amount       int64     `json:"amount"` // positive rupees
	BalanceAfter int64     `json:"balance_after"`
}

// TransferMode describes one entry of the static transfer-mode catalog.
type TransferMode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TransferModes is the full catalog of interbank rails plus the implicit
// internal mode used for own-account and same-bank transfers.
func TransferModes() []TransferMode {
	return []TransferMode{
		{ID: ModeIMPS, Name: "IMPS", Description: "Instant (24x7)"},
		{ID: ModeNEFT, Name: "NEFT", Description: "Within 2 working hours"},
		{ID: ModeRTGS, Name: "RTGS", Description: "Real-time (₹2 lakh+, only in working hours)"},
	}
}

/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the banking service needs. Keeping the interface here decouples the
 * business logic from the PostgreSQL implementation and lets tests substitute
 * stubs and in-memory fakes.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrBeneficiaryNotFound = errors.New("beneficiary not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// CommitTransferParams carries everything the atomic commit needs. For
// own-account transfers DestinationAccountID is set and the commit credits it
// in the same transaction; for beneficiary transfers it is empty and only the
// debit leg is posted.
type CommitTransferParams struct {
	UserID               string
	SourceAccountID      string
	DestinationAccountID string
	Amount               int64
	DebitDescription     string
	CreditDescription    string
	Date                 time.Time
}

// CommitTransferResult reports the source account's balance after the debit.
type CommitTransferResult struct {
	NewBalance int64
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Accounts, always scoped to the owning caller.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, accountID, userID string) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID, userID string) (int64, error)

	// Beneficiaries, immutable and caller-scoped.
	ListBeneficiaries(ctx context.Context, userID string) ([]domain.Beneficiary, error)
	GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*domain.Beneficiary, error)
	FindBeneficiariesByName(ctx context.Context, userID, name string) ([]domain.Beneficiary, error)

	// Ledger. Entries come back most recent first with insertion-order
	// tie-break, which keeps page slices stable across navigation.
	ListLedgerEntries(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.LedgerEntry, error)

	// CommitTransfer atomically re-checks the source balance, debits it,
	// appends the debit ledger entry, and for own-account transfers credits
	// the destination and appends its matching entry. Two concurrent commits
	// against the same account must not jointly overdraw it.
	CommitTransfer(ctx context.Context, params CommitTransferParams) (*CommitTransferResult, error)

	// Audit sink: append-only compliance log plus the queries the risk
	// evaluator and reporting surface run over it.
	AppendAudit(ctx context.Context, rec *domain.AuditRecord) error
	CountAuditActionsSince(ctx context.Context, userID, action string, since time.Time) (int, error)
	HasAuditActionWithDetail(ctx context.Context, userID, action, detail string) (bool, error)
	AuditMetrics(ctx context.Context) (*domain.AuditMetrics, error)
}

/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed for accounts, beneficiaries, the
 * append-only ledger, the audit log, and the atomic transfer commit.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finspeak/banking-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = "id, user_id, name, type, account_number, balance, bank"

func scanAccount(row pgx.Row, acc *domain.Account) error {
	return row.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Type, &acc.AccountNumber, &acc.Balance, &acc.Bank)
}

// ListAccounts retrieves every account owned by the caller, in creation order.
func (r *PostgresRepository) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE user_id = $1 ORDER BY id", accountColumns)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acc domain.Account
		if err := scanAccount(rows, &acc); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// GetAccount retrieves an account by id, scoped to the caller.
func (r *PostgresRepository) GetAccount(ctx context.Context, accountID, userID string) (*domain.Account, error) {
	var acc domain.Account
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE id = $1 AND user_id = $2", accountColumns)
	err := scanAccount(r.db.QueryRow(ctx, query, accountID, userID), &acc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// GetBalance returns the current balance for a caller-owned account.
func (r *PostgresRepository) GetBalance(ctx context.Context, accountID, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, "SELECT balance FROM accounts WHERE id = $1 AND user_id = $2", accountID, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

const beneficiaryColumns = "id, user_id, name, account_number, bank"

func scanBeneficiary(row pgx.Row, ben *domain.Beneficiary) error {
	return row.Scan(&ben.ID, &ben.UserID, &ben.Name, &ben.AccountNumber, &ben.Bank)
}

// ListBeneficiaries retrieves every beneficiary saved by the caller.
func (r *PostgresRepository) ListBeneficiaries(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	query := fmt.Sprintf("SELECT %s FROM beneficiaries WHERE user_id = $1 ORDER BY id", beneficiaryColumns)
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beneficiaries []domain.Beneficiary
	for rows.Next() {
		var ben domain.Beneficiary
		if err := scanBeneficiary(rows, &ben); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, ben)
	}
	return beneficiaries, rows.Err()
}

// GetBeneficiary retrieves a beneficiary by id, scoped to the caller.
func (r *PostgresRepository) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*domain.Beneficiary, error) {
	var ben domain.Beneficiary
	query := fmt.Sprintf("SELECT %s FROM beneficiaries WHERE id = $1 AND user_id = $2", beneficiaryColumns)
	err := scanBeneficiary(r.db.QueryRow(ctx, query, beneficiaryID, userID), &ben)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, err
	}
	return &ben, nil
}

// FindBeneficiariesByName does a case-insensitive substring match on the
// beneficiary display name. Zero, one, or many matches are all valid results;
// disambiguation happens upstream.
func (r *PostgresRepository) FindBeneficiariesByName(ctx context.Context, userID, name string) ([]domain.Beneficiary, error) {
	query := fmt.Sprintf("SELECT %s FROM beneficiaries WHERE user_id = $1 AND lower(name) LIKE $2 ORDER BY id", beneficiaryColumns)
	pattern := "%" + strings.ToLower(strings.TrimSpace(name)) + "%"
	rows, err := r.db.Query(ctx, query, userID, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beneficiaries []domain.Beneficiary
	for rows.Next() {
		var ben domain.Beneficiary
		if err := scanBeneficiary(rows, &ben); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, ben)
	}
	return beneficiaries, rows.Err()
}

// ListLedgerEntries returns the entries for an account within the inclusive
// date range, most recent first. The id tie-break keeps same-date entries in
// a stable order across repeated queries.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, account_id, date, type, description, amount, balance_after
		FROM transactions
		WHERE account_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, accountID, dateRange.Start, dateRange.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Date, &e.Type, &e.Description, &e.Amount, &e.BalanceAfter); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CommitTransfer performs the balance-mutating half of a transfer atomically.
// Row locks are taken in account-id order so two own-account transfers moving
// money in opposite directions cannot deadlock, and the balance is re-checked
// under the lock so concurrent commits cannot jointly overdraw the source.
func (r *PostgresRepository) CommitTransfer(ctx context.Context, params CommitTransferParams) (*CommitTransferResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lockOrder := []string{params.SourceAccountID}
	if params.DestinationAccountID != "" {
		if params.DestinationAccountID < params.SourceAccountID {
			lockOrder = []string{params.DestinationAccountID, params.SourceAccountID}
		} else {
			lockOrder = append(lockOrder, params.DestinationAccountID)
		}
	}

	balances := make(map[string]int64, len(lockOrder))
	for _, id := range lockOrder {
		var balance int64
		err := tx.QueryRow(ctx,
			"SELECT balance FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE",
			id, params.UserID,
		).Scan(&balance)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}
		balances[id] = balance
	}

	sourceBalance := balances[params.SourceAccountID]
	if sourceBalance < params.Amount {
		return nil, ErrInsufficientFunds
	}

	newSourceBalance := sourceBalance - params.Amount
	if _, err := tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", newSourceBalance, params.SourceAccountID); err != nil {
		return nil, err
	}
	if err := appendLedgerEntry(ctx, tx, params.SourceAccountID, params.Date, domain.EntryDebit, params.DebitDescription, params.Amount, newSourceBalance); err != nil {
		return nil, err
	}

	if params.DestinationAccountID != "" {
		newDestBalance := balances[params.DestinationAccountID] + params.Amount
		if _, err := tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", newDestBalance, params.DestinationAccountID); err != nil {
			return nil, err
		}
		if err := appendLedgerEntry(ctx, tx, params.DestinationAccountID, params.Date, domain.EntryCredit, params.CreditDescription, params.Amount, newDestBalance); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &CommitTransferResult{NewBalance: newSourceBalance}, nil
}

func appendLedgerEntry(ctx context.Context, tx pgx.Tx, accountID string, date time.Time, entryType, description string, amount, balanceAfter int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (account_id, date, type, description, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, accountID, date, entryType, description, amount, balanceAfter)
	return err
}

// AppendAudit inserts one compliance log entry. Account ids arrive already
// masked; this layer never sees the unmasked form.
func (r *PostgresRepository) AppendAudit(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (timestamp, user_id, action, details, status, amount, from_account, to_account, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.Timestamp, rec.UserID, rec.Action, rec.Details, rec.Status, rec.Amount, rec.FromAccount, rec.ToAccount, rec.SessionID)
	return err
}

// CountAuditActionsSince counts a caller's audit entries for one action in a
// trailing window; the risk evaluator uses it for rapid-transfer detection.
func (r *PostgresRepository) CountAuditActionsSince(ctx context.Context, userID, action string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE user_id = $1 AND action = $2 AND timestamp > $3",
		userID, action, since,
	).Scan(&count)
	return count, err
}

// HasAuditActionWithDetail reports whether any of the caller's audit entries
// for the action mention the given detail (e.g. a beneficiary id).
func (r *PostgresRepository) HasAuditActionWithDetail(ctx context.Context, userID, action, detail string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM audit_logs WHERE user_id = $1 AND action = $2 AND details LIKE $3)",
		userID, action, "%"+detail+"%",
	).Scan(&exists)
	return exists, err
}

// AuditMetrics aggregates the sink for the reporting surface.
func (r *PostgresRepository) AuditMetrics(ctx context.Context) (*domain.AuditMetrics, error) {
	var m domain.AuditMetrics

	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE action = $1", domain.AuditTransferCompleted,
	).Scan(&m.TotalTransactions)
	if err != nil {
		return nil, err
	}

	var successes int64
	err = r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE action = $1 AND status = $2",
		domain.AuditTransferCompleted, domain.AuditSuccess,
	).Scan(&successes)
	if err != nil {
		return nil, err
	}
	if m.TotalTransactions > 0 {
		m.SuccessRate = float64(successes) / float64(m.TotalTransactions) * 100
	}

	err = r.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM audit_logs WHERE action = $1 AND status = $2",
		domain.AuditTransferCompleted, domain.AuditSuccess,
	).Scan(&m.TotalAmountTransferred)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE timestamp > $1", time.Now().Add(-24*time.Hour),
	).Scan(&m.RecentActivity24h)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

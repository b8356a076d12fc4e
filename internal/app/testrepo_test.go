package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// memoryRepo is a full in-memory store.Repository used by the flow and
// paginator tests. CommitTransfer takes the same lock as reads so the
// concurrency tests exercise real contention.
type memoryRepo struct {
	mu            sync.Mutex
	accounts      map[string]*domain.Account
	beneficiaries map[string]*domain.Beneficiary
	ledger        []domain.LedgerEntry
	audits        []domain.AuditRecord
	nextLedgerID  int64
	listLedgerErr error // injected fault for ListLedgerEntries
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts:      make(map[string]*domain.Account),
		beneficiaries: make(map[string]*domain.Beneficiary),
		nextLedgerID:  1,
	}
}

func (m *memoryRepo) addAccount(acc domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := acc
	m.accounts[acc.ID] = &copied
}

func (m *memoryRepo) addBeneficiary(ben domain.Beneficiary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := ben
	m.beneficiaries[ben.ID] = &copied
}

func (m *memoryRepo) addLedgerEntry(accountID string, date time.Time, entryType, description string, amount, balanceAfter int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLedgerLocked(accountID, date, entryType, description, amount, balanceAfter)
}

func (m *memoryRepo) appendLedgerLocked(accountID string, date time.Time, entryType, description string, amount, balanceAfter int64) {
	m.ledger = append(m.ledger, domain.LedgerEntry{
		ID:           m.nextLedgerID,
		AccountID:    accountID,
		Date:         date,
		Type:         entryType,
		Description:  description,
		Amount:       amount,
		BalanceAfter: balanceAfter,
	})
	m.nextLedgerID++
}

func (m *memoryRepo) ledgerFor(accountID string) []domain.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []domain.LedgerEntry
	for _, e := range m.ledger {
		if e.AccountID == accountID {
			entries = append(entries, e)
		}
	}
	return entries
}

func (m *memoryRepo) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.audits))
	for _, rec := range m.audits {
		actions = append(actions, rec.Action)
	}
	return actions
}

func (m *memoryRepo) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var accounts []domain.Account
	for _, acc := range m.accounts {
		if acc.UserID == userID {
			accounts = append(accounts, *acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *memoryRepo) GetAccount(ctx context.Context, accountID, userID string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok || acc.UserID != userID {
		return nil, store.ErrAccountNotFound
	}
	copied := *acc
	return &copied, nil
}

func (m *memoryRepo) GetBalance(ctx context.Context, accountID, userID string) (int64, error) {
	acc, err := m.GetAccount(ctx, accountID, userID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (m *memoryRepo) ListBeneficiaries(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var beneficiaries []domain.Beneficiary
	for _, ben := range m.beneficiaries {
		if ben.UserID == userID {
			beneficiaries = append(beneficiaries, *ben)
		}
	}
	sort.Slice(beneficiaries, func(i, j int) bool { return beneficiaries[i].ID < beneficiaries[j].ID })
	return beneficiaries, nil
}

func (m *memoryRepo) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*domain.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ben, ok := m.beneficiaries[beneficiaryID]
	if !ok || ben.UserID != userID {
		return nil, store.ErrBeneficiaryNotFound
	}
	copied := *ben
	return &copied, nil
}

func (m *memoryRepo) FindBeneficiariesByName(ctx context.Context, userID, name string) ([]domain.Beneficiary, error) {
	all, err := m.ListBeneficiaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	var matches []domain.Beneficiary
	for _, ben := range all {
		if strings.Contains(strings.ToLower(ben.Name), needle) {
			matches = append(matches, ben)
		}
	}
	return matches, nil
}

func (m *memoryRepo) ListLedgerEntries(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listLedgerErr != nil {
		return nil, m.listLedgerErr
	}
	var entries []domain.LedgerEntry
	for _, e := range m.ledger {
		if e.AccountID != accountID {
			continue
		}
		if e.Date.Before(dateRange.Start) || e.Date.After(dateRange.End) {
			continue
		}
		entries = append(entries, e)
	}
	// Most recent first, insertion-order tie-break.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}

func (m *memoryRepo) CommitTransfer(ctx context.Context, params store.CommitTransferParams) (*store.CommitTransferResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.accounts[params.SourceAccountID]
	if !ok || source.UserID != params.UserID {
		return nil, store.ErrAccountNotFound
	}
	if source.Balance < params.Amount {
		return nil, store.ErrInsufficientFunds
	}

	source.Balance -= params.Amount
	m.appendLedgerLocked(source.ID, params.Date, domain.EntryDebit, params.DebitDescription, params.Amount, source.Balance)

	if params.DestinationAccountID != "" {
		dest, ok := m.accounts[params.DestinationAccountID]
		if !ok || dest.UserID != params.UserID {
			return nil, store.ErrAccountNotFound
		}
		dest.Balance += params.Amount
		m.appendLedgerLocked(dest.ID, params.Date, domain.EntryCredit, params.CreditDescription, params.Amount, dest.Balance)
	}

	return &store.CommitTransferResult{NewBalance: source.Balance}, nil
}

func (m *memoryRepo) AppendAudit(ctx context.Context, rec *domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rec
	copied.ID = int64(len(m.audits) + 1)
	m.audits = append(m.audits, copied)
	return nil
}

func (m *memoryRepo) CountAuditActionsSince(ctx context.Context, userID, action string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.audits {
		if rec.UserID == userID && rec.Action == action && !rec.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) HasAuditActionWithDetail(ctx context.Context, userID, action, detail string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.audits {
		if rec.UserID == userID && rec.Action == action && strings.Contains(rec.Details, detail) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) AuditMetrics(ctx context.Context) (*domain.AuditMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics := &domain.AuditMetrics{}
	var completed, failed int64
	for _, rec := range m.audits {
		switch rec.Action {
		case domain.AuditTransferCompleted:
			completed++
			metrics.TotalAmountTransferred += rec.Amount
		case domain.AuditTransferFailed:
			failed++
		}
	}
	metrics.TotalTransactions = completed + failed
	if metrics.TotalTransactions > 0 {
		metrics.SuccessRate = float64(completed) / float64(metrics.TotalTransactions) * 100
	}
	return metrics, nil
}

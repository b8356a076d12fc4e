/**
 * @description
 * This file contains the account-facing operations of the banking service:
 * account and beneficiary listings, balance inquiries with loose filters, and
 * the static transfer-mode catalog. The transfer flow and the history
 * paginator build on the Service defined here.
 *
 * Key features:
 * - Account filters match on type, name, or number digits so a voice caller
 *   can say "savings", "emergency fund", or "7890" interchangeably.
 * - Destination listings for own-account transfers always exclude the
 *   already-chosen source account.
 *
 * @dependencies
 * - context, strings: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"strings"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// Service provides the core business logic for the banking assistant backend.
type Service struct {
	repo     store.Repository
	flow     *TransferFlow
	history  *HistoryPaginator
	audit    *Auditor
	homeBank string
}

// NewService creates a new banking service instance. The transfer flow and
// history paginator are constructed separately and attached with the
// setters below.
func NewService(repo store.Repository, audit *Auditor, homeBank string) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		homeBank: homeBank,
	}
}

// SetTransferFlow attaches the transfer confirmation flow.
func (s *Service) SetTransferFlow(flow *TransferFlow) { s.flow = flow }

// SetHistoryPaginator attaches the transaction history paginator.
func (s *Service) SetHistoryPaginator(h *HistoryPaginator) { s.history = h }

// Flow returns the attached transfer confirmation flow.
func (s *Service) Flow() *TransferFlow { return s.flow }

// History returns the attached history paginator.
func (s *Service) History() *HistoryPaginator { return s.history }

// HomeBank returns the institution this service serves. A beneficiary at the
// same institution collapses mode selection to 'internal'.
func (s *Service) HomeBank() string { return s.homeBank }

// ListAccounts returns every account owned by the caller.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx, userID)
}

// GetAccount returns one caller-owned account by id.
func (s *Service) GetAccount(ctx context.Context, accountID, userID string) (*domain.Account, error) {
	return s.repo.GetAccount(ctx, accountID, userID)
}

// ListDestinationAccounts returns the caller's accounts minus the chosen
// source, for the own-account destination step.
func (s *Service) ListDestinationAccounts(ctx context.Context, userID, excludeAccountID string) ([]domain.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	destinations := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.ID == excludeAccountID {
			continue
		}
		destinations = append(destinations, acc)
	}
	return destinations, nil
}

// CheckBalance returns balances for the caller's accounts. With an empty
// filter every account is returned along with the total; with a filter only
// the matching subset comes back. A filter that matches nothing is a distinct
// error from the caller having no accounts at all.
func (s *Service) CheckBalance(ctx context.Context, userID, accountFilter string) (*domain.BalanceSummary, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	filter := strings.TrimSpace(accountFilter)
	if filter == "" {
		var total int64
		for _, acc := range accounts {
			total += acc.Balance
		}
		return &domain.BalanceSummary{Accounts: accounts, TotalBalance: &total}, nil
	}

	matched := filterAccounts(accounts, filter)
	if len(matched) == 0 {
		return nil, ErrNoMatchingAccount
	}
	return &domain.BalanceSummary{Accounts: matched}, nil
}

// ResolveAccount finds exactly one caller account from a loose filter: an
// explicit id, an account type, a name fragment, or number digits. When the
// filter matches several accounts the first match wins, mirroring the order
// accounts are listed in.
func (s *Service) ResolveAccount(ctx context.Context, userID, filter string) (*domain.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	trimmed := strings.TrimSpace(filter)
	for _, acc := range accounts {
		if acc.ID == trimmed {
			return &acc, nil
		}
	}
	matched := filterAccounts(accounts, trimmed)
	if len(matched) == 0 {
		return nil, ErrNoMatchingAccount
	}
	return &matched[0], nil
}

func filterAccounts(accounts []domain.Account, filter string) []domain.Account {
	needle := strings.ToLower(strings.TrimSpace(filter))
	var matched []domain.Account
	for _, acc := range accounts {
		if strings.Contains(strings.ToLower(acc.Type), needle) ||
			strings.Contains(strings.ToLower(acc.Name), needle) ||
			strings.Contains(acc.AccountNumber, filter) {
			matched = append(matched, acc)
		}
	}
	return matched
}

// ListBeneficiaries returns every beneficiary saved by the caller.
func (s *Service) ListBeneficiaries(ctx context.Context, userID string) ([]domain.Beneficiary, error) {
	return s.repo.ListBeneficiaries(ctx, userID)
}

// GetBeneficiary returns one caller-scoped beneficiary by id.
func (s *Service) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*domain.Beneficiary, error) {
	return s.repo.GetBeneficiary(ctx, beneficiaryID, userID)
}

// FindBeneficiariesByName matches beneficiary names case-insensitively on a
// substring. Zero, one, or many results are all valid; a multi-match is the
// dispatcher's cue to ask the caller which one they meant.
func (s *Service) FindBeneficiariesByName(ctx context.Context, userID, name string) ([]domain.Beneficiary, error) {
	return s.repo.FindBeneficiariesByName(ctx, userID, name)
}

// ListTransferModes returns the static interbank mode catalog.
func (s *Service) ListTransferModes() []domain.TransferMode {
	return domain.TransferModes()
}

// AuditMetricsReport exposes sink aggregates to the reporting surface.
func (s *Service) AuditMetricsReport(ctx context.Context) (*domain.AuditMetrics, error) {
	return s.repo.AuditMetrics(ctx)
}

// SpeechName renders an account the way the voice layer reads it out, e.g.
// "Savings Account ending with 7890".
func SpeechName(acc domain.Account) string {
	accountType := acc.Type
	if accountType != "" {
		accountType = strings.ToUpper(accountType[:1]) + accountType[1:]
	}
	return accountType + " Account ending with " + acc.LastFour()
}

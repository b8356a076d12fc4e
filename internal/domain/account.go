/**
 * @description
 * This file defines the account and beneficiary domain models for the banking
 * service. These structs represent the entities used throughout the business
 * logic, database interactions, and API layers.
 *
 * @notes
 * - Balances are stored as `int64` whole rupees. The product does not deal in
 *   paise, so integer rupees avoid floating-point inaccuracies without a
 *   minor-unit conversion layer.
 * - Account numbers are stored masked (e.g. "XXXX7890"); the clear number
 *   never enters this service.
 */

package domain

// Account categories supported by the bank.
const (
	AccountTypeSavings = "savings"
	AccountTypeCurrent = "current"
)

// Account represents one bank account owned by a caller.
type Account struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`           // 'savings' or 'current'
	AccountNumber string `json:"account_number"` // masked, last 4 digits visible
	Balance       int64  `json:"balance"`        // whole rupees, never negative
	Bank          string `json:"bank"`
}

// DisplayName renders the account the way the UI lists it, e.g.
// "Primary Savings (XXXX7890)".
func (a Account) DisplayName() string {
	return a.Name + " (" + a.AccountNumber + ")"
}

// LastFour returns the visible tail of the masked account number.
func (a Account) LastFour() string {
	if len(a.AccountNumber) < 4 {
		return a.AccountNumber
	}
	return a.AccountNumber[len(a.AccountNumber)-4:]
}

// Beneficiary represents a saved external transfer destination. Beneficiaries
// are immutable once created; there is no update or delete path in this
// service.
type Beneficiary struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"` // masked
	Bank          string `json:"bank"`
}

// SameBankAs reports whether the beneficiary is held at the given home
// institution. Same-bank transfers skip mode selection entirely.
func (b Beneficiary) SameBankAs(homeBank string) bool {
	return b.Bank == homeBank
}

// BalanceSummary is the response shape for balance inquiries. TotalBalance is
// only populated when the caller asked for all accounts rather than a
// filtered subset.
type BalanceSummary struct {
	Accounts     []Account `json:"accounts"`
	TotalBalance *int64    `json:"total_balance,omitempty"`
}

/**
 * @description
 * This file defines the tagged errors the banking service returns for
 * expected business conditions. The flow and paginator never panic for these;
 * callers branch on them with errors.Is / errors.As and turn them into
 * clarifying questions or actionable messages.
 */

package app

import (
	"errors"
	"fmt"

	"github.com/finspeak/banking-service/internal/domain"
)

var (
	// Validation errors: recoverable locally, surfaced as clarifying questions.
	ErrInvalidAmount = errors.New("amount must be a positive whole number of rupees")
	ErrInvalidMode   = errors.New("transfer mode must be one of imps, neft or rtgs")
	ErrInvalidKind   = errors.New("transfer must be to a beneficiary or to one of your own accounts")
	ErrInvalidRange  = errors.New("could not understand the requested date range")

	// Unsupported inputs from the conversational layer.
	ErrUnsupportedCurrency = errors.New("amounts must be in rupees")
	ErrUnknownTool         = errors.New("unknown tool")

	// Not-found errors: surfaced verbatim.
	ErrNoPendingTransaction = errors.New("no pending transaction")
	ErrNoActiveSession      = errors.New("no active pagination session")
	ErrNoAccounts           = errors.New("no accounts found for this user")
	ErrNoMatchingAccount    = errors.New("no account matches that filter")

	// Business-rule violations.
	ErrSameAccountTransfer = errors.New("source and destination accounts must be different")

	// Security errors. Surfaced generically; the intent survives a mismatch.
	ErrInvalidOTP          = errors.New("invalid code, try again")
	ErrOTPAttemptsExceeded = errors.New("too many incorrect codes, please wait before retrying")

	// Pagination boundaries.
	ErrAlreadyOnFirstPage = errors.New("already on the first page")
	ErrAlreadyOnLastPage  = errors.New("already on the last page")

	// Integrity errors: fatal to the turn, distinct from business errors so a
	// caller never conflates "not enough money" with "our system broke".
	ErrTransferFailed = errors.New("transfer failed, please try again later")
)

// InsufficientBalanceError is returned when the source balance cannot cover
// the amount, at OTP gate time or at commit time. The message always names
// the available balance.
type InsufficientBalanceError struct {
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance. Available: ₹%d", e.Available)
}

// ModeLimitError is returned when an amount falls outside the chosen mode's
// bounds. The message names the bound and suggests an alternative mode, and
// the flow state does not advance.
type ModeLimitError struct {
	Mode        string
	Amount      int64
	Limit       int64
	Alternative string
}

func (e *ModeLimitError) Error() string {
	if e.Mode == domain.ModeIMPS {
		return fmt.Sprintf("IMPS transfers are limited to ₹%d. For ₹%d, use %s instead", e.Limit, e.Amount, e.Alternative)
	}
	return fmt.Sprintf("RTGS requires a minimum of ₹%d. For ₹%d, use %s instead", e.Limit, e.Amount, e.Alternative)
}

// RangeTooWideError rejects a history range before storage is queried.
type RangeTooWideError struct {
	RequestedDays int
}

func (e *RangeTooWideError) Error() string {
	return fmt.Sprintf("date ranges are limited to %d days; try the last %d days instead", domain.HistoryRangeCapDays, domain.HistoryRangeCapDays)
}

/**
 * @description
 * This file implements the transfer confirmation flow: the strictly ordered
 * sequence of steps that collects a transfer kind, source account,
 * destination, amount and mode, restates the intent for explicit
 * confirmation, issues a one-time password, and only then performs the
 * atomic balance-mutating commit.
 *
 * Key invariants:
 * - A debit is posted if and only if every affirmative step completed. There
 *   is no path that skips the OTP challenge.
 * - The balance is checked twice: once to gate OTP issuance and again inside
 *   the commit transaction, because time passes between the two.
 * - An intent reaches COMMITTED at most once. Committing deletes it, so a
 *   repeated OTP submission fails with "no pending transaction".
 * - The OTP code is never placed in any caller-visible field.
 *
 * @dependencies
 * - context, crypto/rand, errors, fmt, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// ErrNoOTPIssued is returned when a code is submitted for an intent that has
// not reached the OTP step yet.
var ErrNoOTPIssued = errors.New("no OTP has been issued for this transfer")

// OTPConfig controls challenge generation. The bypass code exists for demo
// and test environments only and is honored exclusively when BypassEnabled is
// set from configuration; production deployments leave it off.
type OTPConfig struct {
	BypassEnabled bool
	BypassCode    string
}

// OTPAttemptLimiter bounds how often codes may be tried against one intent.
// A nil limiter means unlimited retries.
type OTPAttemptLimiter interface {
	ConsumeAttempt(ctx context.Context, handle string) (allowed bool, retryAfterSeconds int, err error)
}

// TransferFlow is the transfer confirmation state machine.
type TransferFlow struct {
	repo       store.Repository
	intents    *IntentStore
	audit      *Auditor
	risk       *RiskEvaluator
	otp        OTPConfig
	otpLimiter OTPAttemptLimiter
	homeBank   string
	now        func() time.Time
	newCode    func() string
}

// NewTransferFlow creates the confirmation flow.
func NewTransferFlow(repo store.Repository, intents *IntentStore, audit *Auditor, risk *RiskEvaluator, otp OTPConfig, homeBank string) *TransferFlow {
	return &TransferFlow{
		repo:     repo,
		intents:  intents,
		audit:    audit,
		risk:     risk,
		otp:      otp,
		homeBank: homeBank,
		now:      time.Now,
		newCode:  generateOTP,
	}
}

// SetOTPAttemptLimiter attaches an optional retry limiter for OTP
// submissions.
func (f *TransferFlow) SetOTPAttemptLimiter(l OTPAttemptLimiter) { f.otpLimiter = l }

// withOwnedIntent resolves a handle and verifies it belongs to the caller. A
// handle held by the wrong caller is indistinguishable from an unknown one.
func (f *TransferFlow) withOwnedIntent(userID, handle string, fn func(intent *domain.TransferIntent) (error, bool)) error {
	return f.intents.WithIntent(handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.UserID != userID {
			return ErrNoPendingTransaction, false
		}
		return fn(intent)
	})
}

// Start opens a new transfer conversation in COLLECT_KIND.
func (f *TransferFlow) Start(ctx context.Context, userID string) (*domain.TransferPrompt, error) {
	intent := &domain.TransferIntent{
		Handle:    uuid.NewString(),
		UserID:    userID,
		State:     domain.StateCollectKind,
		CreatedAt: f.now(),
		UpdatedAt: f.now(),
	}
	f.intents.Put(intent)
	return kindPrompt(intent), nil
}

// ProvideKind records whether the caller is sending to a beneficiary or
// between their own accounts. Ambiguous phrasing re-asks without advancing.
func (f *TransferFlow) ProvideKind(ctx context.Context, userID, handle, kind string) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateCollectKind {
			return stepError(intent.State), false
		}
		normalized, ok := normalizeKind(kind)
		if !ok {
			prompt = kindPrompt(intent)
			return nil, false
		}
		intent.Kind = normalized
		intent.State = domain.StateCollectSource
		var err error
		prompt, err = f.sourcePrompt(ctx, intent)
		return err, false
	})
	return prompt, err
}

// ProvideSource records the source account, which must belong to the caller.
func (f *TransferFlow) ProvideSource(ctx context.Context, userID, handle, accountID string) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateCollectSource {
			return stepError(intent.State), false
		}
		if _, err := f.repo.GetAccount(ctx, accountID, intent.UserID); err != nil {
			return err, false
		}
		intent.SourceID = accountID
		intent.State = domain.StateCollectDestination
		var err error
		prompt, err = f.destinationPrompt(ctx, intent)
		return err, false
	})
	return prompt, err
}

// ProvideDestination records the destination: a caller-owned beneficiary for
// beneficiary transfers, or a different caller-owned account for own-account
// transfers.
func (f *TransferFlow) ProvideDestination(ctx context.Context, userID, handle, destinationID string) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateCollectDestination {
			return stepError(intent.State), false
		}
		if intent.Kind == domain.TransferKindOwnAccount {
			if destinationID == intent.SourceID {
				return ErrSameAccountTransfer, false
			}
			if _, err := f.repo.GetAccount(ctx, destinationID, intent.UserID); err != nil {
				return err, false
			}
			intent.DestinationID = destinationID
		} else {
			if _, err := f.repo.GetBeneficiary(ctx, destinationID, intent.UserID); err != nil {
				return err, false
			}
			intent.BeneficiaryID = destinationID
		}
		intent.State = domain.StateCollectAmount
		prompt = amountPrompt(intent)
		return nil, false
	})
	return prompt, err
}

// ProvideAmount records a positive rupee amount, then either skips straight
// to confirmation with mode forced to 'internal' (own-account and same-bank
// destinations) or moves on to mode selection.
func (f *TransferFlow) ProvideAmount(ctx context.Context, userID, handle string, amount int64) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateCollectAmount {
			return stepError(intent.State), false
		}
		if amount <= 0 {
			return ErrInvalidAmount, false
		}
		intent.Amount = amount

		internal, err := f.isInternal(ctx, intent)
		if err != nil {
			return err, false
		}
		if internal {
			intent.Mode = domain.ModeInternal
			intent.State = domain.StateAwaitConfirmation
			prompt, err = f.confirmationPrompt(ctx, intent)
			return err, false
		}
		intent.State = domain.StateCollectMode
		prompt = modePrompt(intent)
		return nil, false
	})
	return prompt, err
}

// ProvideMode records the interbank rail. Mode bounds are enforced here,
// before any OTP is issued; a violation names the limit and suggests an
// alternative and the state does not advance.
func (f *TransferFlow) ProvideMode(ctx context.Context, userID, handle, mode string) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateCollectMode {
			return stepError(intent.State), false
		}
		normalized := strings.ToLower(strings.TrimSpace(mode))
		if err := validateMode(normalized, intent.Amount); err != nil {
			return err, false
		}
		intent.Mode = normalized
		intent.State = domain.StateAwaitConfirmation
		var err error
		prompt, err = f.confirmationPrompt(ctx, intent)
		return err, false
	})
	return prompt, err
}

// Confirm handles the explicit yes/no at AWAIT_CONFIRMATION. An affirmative
// gates on the current balance and issues the OTP challenge; anything else
// returns the flow to amount collection instead of advancing.
func (f *TransferFlow) Confirm(ctx context.Context, userID, handle string, affirmative bool) (*domain.TransferPrompt, error) {
	var prompt *domain.TransferPrompt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateAwaitConfirmation {
			return stepError(intent.State), false
		}
		if !affirmative {
			intent.Amount = 0
			intent.Mode = ""
			intent.Confirmed = false
			intent.State = domain.StateCollectAmount
			prompt = amountPrompt(intent)
			return nil, false
		}

		balance, err := f.repo.GetBalance(ctx, intent.SourceID, intent.UserID)
		if err != nil {
			return err, false
		}
		if balance < intent.Amount {
			intent.State = domain.StateFailed
			f.audit.TransferFailed(ctx, intent, "insufficient balance at OTP gate")
			return &InsufficientBalanceError{Available: balance}, true
		}

		f.evaluateRisk(ctx, intent)

		intent.Confirmed = true
		intent.OTP = f.newCode()
		intent.State = domain.StateOTPIssued
		f.audit.TransferInitiated(ctx, intent)

		prompt = otpPrompt(intent)
		return nil, false
	})
	return prompt, err
}

// SubmitOTP checks the challenge code and, on a match, performs the atomic
// commit. A mismatch leaves the intent untouched so the caller can retry.
func (f *TransferFlow) SubmitOTP(ctx context.Context, userID, handle, code string) (*domain.TransferReceipt, error) {
	var receipt *domain.TransferReceipt
	err := f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		if intent.State != domain.StateOTPIssued {
			return ErrNoOTPIssued, false
		}

		if f.otpLimiter != nil {
			allowed, _, err := f.otpLimiter.ConsumeAttempt(ctx, handle)
			if err != nil {
				log.Printf("level=warn component=transfer_flow msg=\"otp limiter unavailable; allowing attempt\" err=%v", err)
			} else if !allowed {
				return ErrOTPAttemptsExceeded, false
			}
		}

		if !f.codeMatches(code, intent.OTP) {
			f.audit.OTPRejected(ctx, intent)
			return ErrInvalidOTP, false
		}

		var err error
		receipt, err = f.commit(ctx, intent)
		if err != nil {
			var insufficient *InsufficientBalanceError
			if errors.As(err, &insufficient) {
				intent.State = domain.StateFailed
				return err, true
			}
			// Storage fault: the commit rolled back, the intent survives.
			return err, false
		}
		intent.State = domain.StateCommitted
		return nil, true
	})
	return receipt, err
}

// Cancel abandons an in-flight intent from any non-terminal state. No
// compensating action is needed because nothing has been committed yet.
func (f *TransferFlow) Cancel(ctx context.Context, userID, handle string) error {
	return f.withOwnedIntent(userID, handle, func(intent *domain.TransferIntent) (error, bool) {
		intent.State = domain.StateCancelled
		f.audit.TransferCancelled(ctx, intent)
		return nil, true
	})
}

// Begin is the single-shot entry point for callers that already collected
// every field (the beginTransfer operation). It runs the same validations as
// the step-by-step path and, when everything holds, issues the OTP challenge
// immediately. Any failure means no intent is created at all.
func (f *TransferFlow) Begin(ctx context.Context, userID, kind, sourceAccountID, destinationID string, amount int64, mode string) (*domain.TransferPrompt, error) {
	normalizedKind, ok := normalizeKind(kind)
	if !ok {
		return nil, ErrInvalidKind
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	source, err := f.repo.GetAccount(ctx, sourceAccountID, userID)
	if err != nil {
		return nil, err
	}

	intent := &domain.TransferIntent{
		Handle:    uuid.NewString(),
		UserID:    userID,
		Kind:      normalizedKind,
		SourceID:  sourceAccountID,
		Amount:    amount,
		CreatedAt: f.now(),
		UpdatedAt: f.now(),
	}

	if normalizedKind == domain.TransferKindOwnAccount {
		if destinationID == sourceAccountID {
			return nil, ErrSameAccountTransfer
		}
		if _, err := f.repo.GetAccount(ctx, destinationID, userID); err != nil {
			return nil, err
		}
		intent.DestinationID = destinationID
	} else {
		if _, err := f.repo.GetBeneficiary(ctx, destinationID, userID); err != nil {
			return nil, err
		}
		intent.BeneficiaryID = destinationID
	}

	internal, err := f.isInternal(ctx, intent)
	if err != nil {
		return nil, err
	}
	if internal {
		intent.Mode = domain.ModeInternal
	} else {
		normalizedMode := strings.ToLower(strings.TrimSpace(mode))
		if normalizedMode == "" {
			normalizedMode = domain.ModeIMPS
		}
		if err := validateMode(normalizedMode, amount); err != nil {
			return nil, err
		}
		intent.Mode = normalizedMode
	}

	if source.Balance < amount {
		return nil, &InsufficientBalanceError{Available: source.Balance}
	}

	f.evaluateRisk(ctx, intent)

	intent.Confirmed = true
	intent.OTP = f.newCode()
	intent.State = domain.StateOTPIssued
	f.intents.Put(intent)
	f.audit.TransferInitiated(ctx, intent)

	return otpPrompt(intent), nil
}

func (f *TransferFlow) commit(ctx context.Context, intent *domain.TransferIntent) (*domain.TransferReceipt, error) {
	sourceName, destName, err := f.partyNames(ctx, intent)
	if err != nil {
		return nil, err
	}

	params := store.CommitTransferParams{
		UserID:           intent.UserID,
		SourceAccountID:  intent.SourceID,
		Amount:           intent.Amount,
		DebitDescription: "Transfer to " + destName,
		Date:             f.now(),
	}
	if intent.Kind == domain.TransferKindOwnAccount {
		params.DestinationAccountID = intent.DestinationID
		params.CreditDescription = "Transfer from " + sourceName
	}

	result, err := f.repo.CommitTransfer(ctx, params)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			balance, balErr := f.repo.GetBalance(ctx, intent.SourceID, intent.UserID)
			if balErr != nil {
				balance = 0
			}
			f.audit.TransferFailed(ctx, intent, "insufficient balance at commit")
			return nil, &InsufficientBalanceError{Available: balance}
		}
		f.audit.TransferFailed(ctx, intent, "storage failure during commit")
		log.Printf("level=error component=transfer_flow msg=\"commit failed\" handle=%s err=%v", intent.Handle, err)
		return nil, ErrTransferFailed
	}

	receipt := &domain.TransferReceipt{
		TransactionRef: newTransactionRef(),
		Amount:         intent.Amount,
		Source:         sourceName,
		Destination:    destName,
		Mode:           intent.Mode,
		NewBalance:     result.NewBalance,
	}
	f.audit.TransferCompleted(ctx, intent, receipt)
	return receipt, nil
}

// isInternal reports whether the intent needs no mode step: own-account
// transfers always, and beneficiary transfers whose destination bank is the
// caller's home institution.
func (f *TransferFlow) isInternal(ctx context.Context, intent *domain.TransferIntent) (bool, error) {
	if intent.Kind == domain.TransferKindOwnAccount {
		return true, nil
	}
	ben, err := f.repo.GetBeneficiary(ctx, intent.BeneficiaryID, intent.UserID)
	if err != nil {
		return false, err
	}
	return ben.SameBankAs(f.homeBank), nil
}

func (f *TransferFlow) evaluateRisk(ctx context.Context, intent *domain.TransferIntent) {
	if f.risk == nil {
		return
	}
	assessment, err := f.risk.Analyze(ctx, intent.UserID, intent.Amount, intent.Kind, intent.BeneficiaryID)
	if err != nil {
		log.Printf("level=warn component=transfer_flow msg=\"risk evaluation failed; continuing\" handle=%s err=%v", intent.Handle, err)
		return
	}
	// Advisory only: logged and surfaced, never blocking.
	f.audit.RiskAssessed(ctx, intent, assessment)
}

func (f *TransferFlow) codeMatches(code, expected string) bool {
	if code == expected {
		return true
	}
	return f.otp.BypassEnabled && f.otp.BypassCode != "" && code == f.otp.BypassCode
}

func (f *TransferFlow) partyNames(ctx context.Context, intent *domain.TransferIntent) (source, destination string, err error) {
	sourceAcc, err := f.repo.GetAccount(ctx, intent.SourceID, intent.UserID)
	if err != nil {
		return "", "", err
	}
	if intent.Kind == domain.TransferKindOwnAccount {
		destAcc, err := f.repo.GetAccount(ctx, intent.DestinationID, intent.UserID)
		if err != nil {
			return "", "", err
		}
		return sourceAcc.Name, destAcc.Name, nil
	}
	ben, err := f.repo.GetBeneficiary(ctx, intent.BeneficiaryID, intent.UserID)
	if err != nil {
		return "", "", err
	}
	return sourceAcc.Name, ben.Name, nil
}

func (f *TransferFlow) sourcePrompt(ctx context.Context, intent *domain.TransferIntent) (*domain.TransferPrompt, error) {
	accounts, err := f.repo.ListAccounts(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}
	options := make([]domain.PromptOption, 0, len(accounts))
	for _, acc := range accounts {
		options = append(options, domain.PromptOption{ID: acc.ID, Text: acc.DisplayName()})
	}
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "source_account",
		Message:       "Which account would you like to use?",
		Options:       options,
	}, nil
}

func (f *TransferFlow) destinationPrompt(ctx context.Context, intent *domain.TransferIntent) (*domain.TransferPrompt, error) {
	if intent.Kind == domain.TransferKindOwnAccount {
		accounts, err := f.repo.ListAccounts(ctx, intent.UserID)
		if err != nil {
			return nil, err
		}
		options := make([]domain.PromptOption, 0, len(accounts))
		for _, acc := range accounts {
			if acc.ID == intent.SourceID {
				continue
			}
			options = append(options, domain.PromptOption{ID: acc.ID, Text: acc.DisplayName()})
		}
		return &domain.TransferPrompt{
			Handle:        intent.Handle,
			State:         intent.State,
			RequiredInput: "destination_account",
			Message:       "Which account should receive the money?",
			Options:       options,
		}, nil
	}

	beneficiaries, err := f.repo.ListBeneficiaries(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}
	options := make([]domain.PromptOption, 0, len(beneficiaries))
	for _, ben := range beneficiaries {
		options = append(options, domain.PromptOption{ID: ben.ID, Text: ben.Name + " - " + ben.Bank + " (" + ben.AccountNumber + ")"})
	}
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "beneficiary_id",
		Message:       "Who would you like to send money to?",
		Options:       options,
	}, nil
}

func (f *TransferFlow) confirmationPrompt(ctx context.Context, intent *domain.TransferIntent) (*domain.TransferPrompt, error) {
	sourceName, destName, err := f.partyNames(ctx, intent)
	if err != nil {
		return nil, err
	}
	summary := &domain.TransferSummary{
		Amount:      intent.Amount,
		Source:      sourceName,
		Destination: destName,
	}
	message := fmt.Sprintf("Send ₹%d from %s to %s?", intent.Amount, sourceName, destName)
	if intent.Mode != domain.ModeInternal {
		summary.Mode = intent.Mode
		message = fmt.Sprintf("Send ₹%d from %s to %s via %s?", intent.Amount, sourceName, destName, strings.ToUpper(intent.Mode))
	}
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "confirmation",
		Message:       message,
		Summary:       summary,
	}, nil
}

func kindPrompt(intent *domain.TransferIntent) *domain.TransferPrompt {
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "transfer_kind",
		Message:       "Would you like to send money to a saved beneficiary, or move it between your own accounts?",
		Options: []domain.PromptOption{
			{ID: domain.TransferKindBeneficiary, Text: "Send to a beneficiary"},
			{ID: domain.TransferKindOwnAccount, Text: "Between my own accounts"},
		},
	}
}

func amountPrompt(intent *domain.TransferIntent) *domain.TransferPrompt {
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "amount",
		Message:       "How much would you like to transfer?",
	}
}

func modePrompt(intent *domain.TransferIntent) *domain.TransferPrompt {
	modes := domain.TransferModes()
	options := make([]domain.PromptOption, 0, len(modes))
	for _, m := range modes {
		options = append(options, domain.PromptOption{ID: m.ID, Text: m.Name + " - " + m.Description})
	}
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "transfer_mode",
		Message:       "This is an inter-bank transfer. Which mode would you prefer?",
		Options:       options,
	}
}

func otpPrompt(intent *domain.TransferIntent) *domain.TransferPrompt {
	return &domain.TransferPrompt{
		Handle:        intent.Handle,
		State:         intent.State,
		RequiredInput: "otp",
		Message:       "An OTP has been sent to your registered mobile number. Please enter it to complete the transfer.",
	}
}

func stepError(state domain.TransferState) error {
	return fmt.Errorf("unexpected input for transfer step %s", state)
}

func normalizeKind(kind string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case domain.TransferKindBeneficiary, "payee":
		return domain.TransferKindBeneficiary, true
	case domain.TransferKindOwnAccount, "own", "self", "own account":
		return domain.TransferKindOwnAccount, true
	default:
		return "", false
	}
}

// validateMode checks both the mode identifier and its amount bounds. The
// IMPS cap and the RTGS floor are inclusive.
func validateMode(mode string, amount int64) error {
	switch mode {
	case domain.ModeIMPS:
		if amount > domain.IMPSMaxAmount {
			return &ModeLimitError{Mode: mode, Amount: amount, Limit: domain.IMPSMaxAmount, Alternative: "NEFT or RTGS"}
		}
	case domain.ModeNEFT:
		// No bound.
	case domain.ModeRTGS:
		if amount < domain.RTGSMinAmount {
			return &ModeLimitError{Mode: mode, Amount: amount, Limit: domain.RTGSMinAmount, Alternative: "IMPS or NEFT"}
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

func generateOTP() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is not survivable for challenge generation.
		panic(fmt.Sprintf("otp generation: %v", err))
	}
	n := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("%06d", 100000+n%900000)
}

func newTransactionRef() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

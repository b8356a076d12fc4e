/**
 * @description
 * This file implements the audit sink: an append-only trail of every
 * transfer lifecycle event and history view, written to storage and mirrored
 * onto the message bus for downstream consumers. Audit writes are
 * best-effort on purpose. A failed append is logged and swallowed so that
 * the customer-facing operation never fails because of the trail.
 *
 * Account numbers are masked to their last four digits before they reach a
 * record; full numbers never enter the audit table or the bus.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// EventPublisher mirrors audit events onto the message bus. A no-op
// implementation is used when the broker is unreachable.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Auditor records transfer lifecycle and history events.
type Auditor struct {
	repo      store.Repository
	publisher EventPublisher
	now       func() time.Time
}

// NewAuditor creates an audit sink. The publisher may be nil.
func NewAuditor(repo store.Repository, publisher EventPublisher) *Auditor {
	return &Auditor{repo: repo, publisher: publisher, now: time.Now}
}

// TransferInitiated records that an OTP challenge was issued for an intent.
func (a *Auditor) TransferInitiated(ctx context.Context, intent *domain.TransferIntent) {
	a.record(ctx, intent, domain.AuditTransferInitiated, domain.AuditSuccess, a.intentDetail(ctx, intent))
}

// TransferCompleted records a successful commit. The detail carries the
// beneficiary id so later risk checks can tell a first-time beneficiary
// apart from a known one.
func (a *Auditor) TransferCompleted(ctx context.Context, intent *domain.TransferIntent, receipt *domain.TransferReceipt) {
	detail := "ref=" + receipt.TransactionRef
	if intent.BeneficiaryID != "" {
		detail += " beneficiary=" + intent.BeneficiaryID
	}
	a.record(ctx, intent, domain.AuditTransferCompleted, domain.AuditSuccess, detail)
}

// TransferFailed records a commit or balance-gate failure.
func (a *Auditor) TransferFailed(ctx context.Context, intent *domain.TransferIntent, reason string) {
	a.record(ctx, intent, domain.AuditTransferFailed, domain.AuditFailed, reason)
}

// TransferCancelled records an explicit abandonment.
func (a *Auditor) TransferCancelled(ctx context.Context, intent *domain.TransferIntent) {
	a.record(ctx, intent, domain.AuditTransferCancelled, domain.AuditSuccess, "cancelled at state "+string(intent.State))
}

// OTPRejected records a wrong challenge code.
func (a *Auditor) OTPRejected(ctx context.Context, intent *domain.TransferIntent) {
	a.record(ctx, intent, domain.AuditOTPRejected, domain.AuditFailed, "challenge code mismatch")
}

// RiskAssessed attaches an advisory risk assessment to the trail when any
// flag fired.
func (a *Auditor) RiskAssessed(ctx context.Context, intent *domain.TransferIntent, assessment *domain.RiskAssessment) {
	if assessment == nil || !assessment.HasRisks {
		return
	}
	for _, flag := range assessment.Flags {
		log.Printf("level=warn component=audit msg=\"risk flag\" user_id=%s level=%s reason=%q", intent.UserID, flag.Level, flag.Reason)
	}
	detail, err := json.Marshal(assessment.Flags)
	if err != nil {
		detail = []byte("unserializable flags")
	}
	a.record(ctx, intent, domain.AuditRiskFlagged, domain.AuditSuccess, string(detail))
}

// HistoryViewed records that a page of transaction history was served.
func (a *Auditor) HistoryViewed(ctx context.Context, userID, accountID, sessionID string) {
	rec := &domain.AuditRecord{
		Timestamp:   a.now(),
		UserID:      userID,
		Action:      domain.AuditHistoryViewed,
		Details:     "account=" + accountID,
		Status:      domain.AuditSuccess,
		FromAccount: a.maskedAccount(ctx, accountID, userID),
		SessionID:   sessionID,
	}
	a.append(ctx, rec)
}

func (a *Auditor) record(ctx context.Context, intent *domain.TransferIntent, action, status, details string) {
	rec := &domain.AuditRecord{
		Timestamp:   a.now(),
		UserID:      intent.UserID,
		Action:      action,
		Details:     details,
		Status:      status,
		Amount:      intent.Amount,
		FromAccount: a.maskedAccount(ctx, intent.SourceID, intent.UserID),
		ToAccount:   a.maskedDestination(ctx, intent),
		SessionID:   intent.Handle,
	}
	a.append(ctx, rec)
}

func (a *Auditor) append(ctx context.Context, rec *domain.AuditRecord) {
	if err := a.repo.AppendAudit(ctx, rec); err != nil {
		log.Printf("level=error component=audit msg=\"append failed\" action=%s user_id=%s err=%v", rec.Action, rec.UserID, err)
	}
	a.publish(ctx, rec)
}

func (a *Auditor) publish(ctx context.Context, rec *domain.AuditRecord) {
	if a.publisher == nil {
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		log.Printf("level=error component=audit msg=\"marshal failed\" action=%s err=%v", rec.Action, err)
		return
	}
	if err := a.publisher.Publish(ctx, "audit."+rec.Action, body); err != nil {
		log.Printf("level=warn component=audit msg=\"publish failed\" action=%s err=%v", rec.Action, err)
	}
}

// intentDetail describes an initiated intent: the transfer kind, plus the
// beneficiary id when one is involved.
func (a *Auditor) intentDetail(_ context.Context, intent *domain.TransferIntent) string {
	detail := "kind=" + intent.Kind
	if intent.BeneficiaryID != "" {
		detail += " beneficiary=" + intent.BeneficiaryID
	}
	return detail
}

func (a *Auditor) maskedAccount(ctx context.Context, accountID, userID string) string {
	if accountID == "" {
		return ""
	}
	acc, err := a.repo.GetAccount(ctx, accountID, userID)
	if err != nil {
		return "***"
	}
	return maskAccountNumber(acc.AccountNumber)
}

func (a *Auditor) maskedDestination(ctx context.Context, intent *domain.TransferIntent) string {
	if intent.BeneficiaryID != "" {
		ben, err := a.repo.GetBeneficiary(ctx, intent.BeneficiaryID, intent.UserID)
		if err != nil {
			return "***"
		}
		return maskAccountNumber(ben.AccountNumber)
	}
	return a.maskedAccount(ctx, intent.DestinationID, intent.UserID)
}

// maskAccountNumber keeps only the last four digits. Shorter numbers are
// fully masked.
func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return "***"
	}
	return "***" + number[len(number)-4:]
}

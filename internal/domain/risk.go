/**
 * @description
 * This file defines the risk-evaluation and audit domain models. Risk
 * assessments are advisory only: they are logged and published to the
 * monitoring surface but never block or alter a transfer's progression.
 */

package domain

import "time"

// Risk levels, ordered.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// RiskFlag is one triggered risk rule.
type RiskFlag struct {
	Level          string `json:"risk_level"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

// RiskAssessment aggregates the flags raised for a proposed transfer.
// OverallLevel is the highest level among the flags, or LOW when none fired.
type RiskAssessment struct {
	HasRisks     bool       `json:"has_risks"`
	Flags        []RiskFlag `json:"risks,omitempty"`
	OverallLevel string     `json:"overall_risk"`
}

// Audit actions recorded by the compliance sink.
const (
	AuditTransferInitiated = "transfer_initiated"
	AuditTransferCompleted = "transfer_completed"
	AuditTransferFailed    = "transfer_failed"
	AuditTransferCancelled = "transfer_cancelled"
	AuditOTPRejected       = "otp_rejected"
	AuditRiskFlagged       = "risk_flagged"
	AuditHistoryViewed     = "history_viewed"
)

// Audit outcomes.
const (
	AuditSuccess = "success"
	AuditFailed  = "failed"
)

// AuditRecord is one append-only compliance log entry. Account identifiers
// are stored masked (e.g. "***7890"); the sink never records a full id.
type AuditRecord struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details,omitempty"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount,omitempty"`
	FromAccount string    `json:"from_account,omitempty"` // masked
	ToAccount   string    `json:"to_account,omitempty"`   // masked
	SessionID   string    `json:"session_id,omitempty"`
}

// AuditMetrics summarizes sink contents for the reporting surface.
type AuditMetrics struct {
	TotalTransactions      int64   `json:"total_transactions"`
	SuccessRate            float64 `json:"success_rate"`
	TotalAmountTransferred int64   `json:"total_amount_transferred"`
	RecentActivity24h      int64   `json:"recent_activity_24h"`
}

/**
 * @description
 * This file implements the advisory risk evaluator for outbound transfers.
 * Every assessment is informational: flags are logged and attached to the
 * audit trail, but a risky transfer still proceeds through the normal OTP
 * challenge. Own-account transfers bypass every check because the money
 * never leaves the caller.
 *
 * Checks:
 * - High amount: beneficiary transfers at or above a configured threshold.
 * - Velocity: several transfer initiations inside a short sliding window.
 * - New beneficiary: a large first-ever transfer to a given beneficiary.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
	"github.com/finspeak/banking-service/internal/store"
)

// RiskThresholds tunes the evaluator. Zero values fall back to the package
// defaults via NewRiskEvaluator.
type RiskThresholds struct {
	HighAmount           int64
	NewBeneficiaryAmount int64
	VelocityCount        int
	VelocityWindow       time.Duration
}

// DefaultRiskThresholds returns the production defaults.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		HighAmount:           50000,
		NewBeneficiaryAmount: 25000,
		VelocityCount:        3,
		VelocityWindow:       5 * time.Minute,
	}
}

// RiskEvaluator inspects a transfer intent against the caller's recent
// activity recorded in the audit trail.
type RiskEvaluator struct {
	repo       store.Repository
	thresholds RiskThresholds
	now        func() time.Time
}

// NewRiskEvaluator creates an evaluator. Unset threshold fields take the
// defaults.
func NewRiskEvaluator(repo store.Repository, thresholds RiskThresholds) *RiskEvaluator {
	defaults := DefaultRiskThresholds()
	if thresholds.HighAmount <= 0 {
		thresholds.HighAmount = defaults.HighAmount
	}
	if thresholds.NewBeneficiaryAmount <= 0 {
		thresholds.NewBeneficiaryAmount = defaults.NewBeneficiaryAmount
	}
	if thresholds.VelocityCount <= 0 {
		thresholds.VelocityCount = defaults.VelocityCount
	}
	if thresholds.VelocityWindow <= 0 {
		thresholds.VelocityWindow = defaults.VelocityWindow
	}
	return &RiskEvaluator{repo: repo, thresholds: thresholds, now: time.Now}
}

// Analyze runs every applicable check and aggregates the flags. The overall
// level is the highest individual flag level.
func (r *RiskEvaluator) Analyze(ctx context.Context, userID string, amount int64, kind, beneficiaryID string) (*domain.RiskAssessment, error) {
	assessment := &domain.RiskAssessment{OverallLevel: domain.RiskLow}
	if kind == domain.TransferKindOwnAccount {
		return assessment, nil
	}

	if amount >= r.thresholds.HighAmount {
		assessment.Flags = append(assessment.Flags, domain.RiskFlag{
			Level:          domain.RiskHigh,
			Reason:         fmt.Sprintf("amount ₹%d is at or above the high-value threshold of ₹%d", amount, r.thresholds.HighAmount),
			Recommendation: "verify the transfer with the customer before proceeding",
		})
	}

	// Velocity: the current initiation counts toward the window, so the
	// threshold is count-1 prior initiations.
	since := r.now().Add(-r.thresholds.VelocityWindow)
	recent, err := r.repo.CountAuditActionsSince(ctx, userID, domain.AuditTransferInitiated, since)
	if err != nil {
		return nil, err
	}
	if recent+1 >= r.thresholds.VelocityCount {
		assessment.Flags = append(assessment.Flags, domain.RiskFlag{
			Level:          domain.RiskMedium,
			Reason:         fmt.Sprintf("%d transfer initiations within %s", recent+1, r.thresholds.VelocityWindow),
			Recommendation: "watch for rapid-fire transfer attempts",
		})
	}

	if beneficiaryID != "" && amount > r.thresholds.NewBeneficiaryAmount {
		seen, err := r.repo.HasAuditActionWithDetail(ctx, userID, domain.AuditTransferCompleted, beneficiaryID)
		if err != nil {
			return nil, err
		}
		if !seen {
			assessment.Flags = append(assessment.Flags, domain.RiskFlag{
				Level:          domain.RiskMedium,
				Reason:         fmt.Sprintf("first transfer to this beneficiary for ₹%d", amount),
				Recommendation: "confirm the beneficiary details with the customer",
			})
		}
	}

	assessment.HasRisks = len(assessment.Flags) > 0
	for _, flag := range assessment.Flags {
		if riskRank(flag.Level) > riskRank(assessment.OverallLevel) {
			assessment.OverallLevel = flag.Level
		}
	}
	return assessment, nil
}

func riskRank(level string) int {
	switch level {
	case domain.RiskHigh:
		return 2
	case domain.RiskMedium:
		return 1
	default:
		return 0
	}
}

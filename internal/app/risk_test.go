package app

import (
	"context"
	"testing"
	"time"

	"github.com/finspeak/banking-service/internal/domain"
)

func TestRiskEvaluator_HighAmount(t *testing.T) {
	repo := newMemoryRepo()
	evaluator := NewRiskEvaluator(repo, RiskThresholds{})
	ctx := context.Background()

	assessment, err := evaluator.Analyze(ctx, "user-1", 50000, domain.TransferKindBeneficiary, "ben-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !assessment.HasRisks {
		t.Fatal("expected the threshold amount to flag")
	}
	if assessment.OverallLevel != domain.RiskHigh {
		t.Fatalf("expected overall HIGH, got %s", assessment.OverallLevel)
	}

	assessment, err = evaluator.Analyze(ctx, "user-1", 49999, domain.TransferKindBeneficiary, "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	for _, flag := range assessment.Flags {
		if flag.Level == domain.RiskHigh {
			t.Fatalf("amount below threshold should not flag high: %+v", flag)
		}
	}
}

func TestRiskEvaluator_OwnAccountBypassesAllChecks(t *testing.T) {
	repo := newMemoryRepo()
	evaluator := NewRiskEvaluator(repo, RiskThresholds{})

	assessment, err := evaluator.Analyze(context.Background(), "user-1", 9000000, domain.TransferKindOwnAccount, "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if assessment.HasRisks || len(assessment.Flags) != 0 {
		t.Fatalf("own-account transfer must never flag, got %+v", assessment)
	}
	if assessment.OverallLevel != domain.RiskLow {
		t.Fatalf("expected LOW, got %s", assessment.OverallLevel)
	}
}

func TestRiskEvaluator_Velocity(t *testing.T) {
	repo := newMemoryRepo()
	evaluator := NewRiskEvaluator(repo, RiskThresholds{})
	ctx := context.Background()

	// Two recent initiations plus the current one reaches the threshold of 3.
	for i := 0; i < 2; i++ {
		repo.AppendAudit(ctx, &domain.AuditRecord{
			Timestamp: time.Now().Add(-time.Minute),
			UserID:    "user-1",
			Action:    domain.AuditTransferInitiated,
			Status:    domain.AuditSuccess,
		})
	}

	assessment, err := evaluator.Analyze(ctx, "user-1", 100, domain.TransferKindBeneficiary, "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !assessment.HasRisks || assessment.OverallLevel != domain.RiskMedium {
		t.Fatalf("expected a MEDIUM velocity flag, got %+v", assessment)
	}

	// Stale initiations outside the window do not count.
	repo2 := newMemoryRepo()
	for i := 0; i < 5; i++ {
		repo2.AppendAudit(ctx, &domain.AuditRecord{
			Timestamp: time.Now().Add(-time.Hour),
			UserID:    "user-1",
			Action:    domain.AuditTransferInitiated,
			Status:    domain.AuditSuccess,
		})
	}
	evaluator2 := NewRiskEvaluator(repo2, RiskThresholds{})
	assessment, err = evaluator2.Analyze(ctx, "user-1", 100, domain.TransferKindBeneficiary, "")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if assessment.HasRisks {
		t.Fatalf("stale activity should not flag, got %+v", assessment)
	}
}

func TestRiskEvaluator_NewBeneficiary(t *testing.T) {
	repo := newMemoryRepo()
	evaluator := NewRiskEvaluator(repo, RiskThresholds{})
	ctx := context.Background()

	assessment, err := evaluator.Analyze(ctx, "user-1", 25001, domain.TransferKindBeneficiary, "ben-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !assessment.HasRisks {
		t.Fatal("expected a new-beneficiary flag for a large first transfer")
	}

	// A prior completed transfer to the beneficiary clears the flag.
	repo.AppendAudit(ctx, &domain.AuditRecord{
		Timestamp: time.Now().Add(-24 * time.Hour),
		UserID:    "user-1",
		Action:    domain.AuditTransferCompleted,
		Details:   "ref=TXN-ABC beneficiary=ben-1",
		Status:    domain.AuditSuccess,
	})
	assessment, err = evaluator.Analyze(ctx, "user-1", 25001, domain.TransferKindBeneficiary, "ben-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if assessment.HasRisks {
		t.Fatalf("known beneficiary should not flag, got %+v", assessment)
	}

	// At the threshold exactly, no flag: the rule is strictly greater-than.
	assessment, err = evaluator.Analyze(ctx, "user-1", 25000, domain.TransferKindBeneficiary, "ben-9")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if assessment.HasRisks {
		t.Fatalf("threshold amount should not flag, got %+v", assessment)
	}
}

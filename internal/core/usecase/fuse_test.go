package usecase

import (
	"math"
	"testing"

	"github.com/krittawat/order-register/internal/core/domain"
)

func warnResult(rule string) domain.ValidationResult {
	return domain.ValidationResult{Rule: rule, Passed: false, Severity: domain.SeverityWarn}
}

func blockResult(rule string) domain.ValidationResult {
	return domain.ValidationResult{Rule: rule, Passed: false, Severity: domain.SeverityBlock}
}

func passResult(rule string) domain.ValidationResult {
	return domain.ValidationResult{Rule: rule, Passed: true}
}

func TestFuseTakesMinimumOfSignals(t *testing.T) {
	fusion := Fuse(0.9, 0.6, nil, DefaultFusionConfig())

	if math.Abs(fusion.Composite-0.6) > 1e-9 {
		t.Fatalf("expected composite 0.6, got %f", fusion.Composite)
	}
	if fusion.Decision != domain.DecisionNeedsReview {
		t.Fatalf("expected needs_review below threshold, got %s", fusion.Decision)
	}
}

func TestFuseWarnPenaltyPerFailedWarning(t *testing.T) {
	validations := []domain.ValidationResult{
		passResult("catalog_match"),
		warnResult("price_band"),
		warnResult("uom_permitted"),
	}
	fusion := Fuse(1.0, 1.0, validations, DefaultFusionConfig())

	if math.Abs(fusion.Composite-0.8) > 1e-9 {
		t.Fatalf("expected composite 0.8 after two warn penalties, got %f", fusion.Composite)
	}
	if fusion.Decision != domain.DecisionAutoAccept {
		t.Fatalf("expected auto_accept at threshold, got %s", fusion.Decision)
	}
}

func TestFuseBlockClampsToZero(t *testing.T) {
	validations := []domain.ValidationResult{
		blockResult("customer_standing"),
		warnResult("price_band"),
	}
	fusion := Fuse(1.0, 1.0, validations, DefaultFusionConfig())

	if fusion.Composite != 0 {
		t.Fatalf("expected composite 0 on block, got %f", fusion.Composite)
	}
	if fusion.Decision != domain.DecisionNeedsReview {
		t.Fatalf("expected needs_review on block, got %s", fusion.Decision)
	}
}

func TestFuseNeverNegative(t *testing.T) {
	validations := []domain.ValidationResult{
		warnResult("a"), warnResult("b"), warnResult("c"), warnResult("d"),
	}
	fusion := Fuse(0.2, 0.2, validations, DefaultFusionConfig())

	if fusion.Composite != 0 {
		t.Fatalf("expected composite clamped to 0, got %f", fusion.Composite)
	}
}

// Adding a failed warning can never raise the composite.
func TestFuseMonotonicInFailures(t *testing.T) {
	base := Fuse(0.95, 0.9, nil, DefaultFusionConfig())

	validations := []domain.ValidationResult{warnResult("price_band")}
	for i := 0; i < 3; i++ {
		fused := Fuse(0.95, 0.9, validations, DefaultFusionConfig())
		if fused.Composite > base.Composite {
			t.Fatalf("composite rose from %f to %f after %d warnings", base.Composite, fused.Composite, len(validations))
		}
		base = fused
		validations = append(validations, warnResult("another"))
	}
}

func TestFuseAutoAcceptAboveThreshold(t *testing.T) {
	fusion := Fuse(0.95, 0.9, []domain.ValidationResult{passResult("catalog_match")}, DefaultFusionConfig())

	if fusion.Decision != domain.DecisionAutoAccept {
		t.Fatalf("expected auto_accept, got %s", fusion.Decision)
	}
	if math.Abs(fusion.Composite-0.9) > 1e-9 {
		t.Fatalf("expected composite 0.9, got %f", fusion.Composite)
	}
}

func TestFusionConfigNormalizeRejectsNonsense(t *testing.T) {
	fusion := Fuse(1.0, 1.0, []domain.ValidationResult{warnResult("x")}, FusionConfig{WarnPenalty: -1, ReviewThreshold: 7})

	if math.Abs(fusion.Composite-0.9) > 1e-9 {
		t.Fatalf("expected default warn penalty applied, got %f", fusion.Composite)
	}
}

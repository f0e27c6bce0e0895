package usecase

import "github.com/krittawat/order-register/internal/core/domain"

// FusionConfig tunes score fusion. The shape (minimum, per-warning penalty,
// block clamp) is fixed; only the constants are tunable.
type FusionConfig struct {
	WarnPenalty     float64
	ReviewThreshold float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		WarnPenalty:     0.1,
		ReviewThreshold: 0.8,
	}
}

func (c FusionConfig) normalize() FusionConfig {
	out := c
	def := DefaultFusionConfig()
	if out.WarnPenalty <= 0 {
		out.WarnPenalty = def.WarnPenalty
	}
	if out.ReviewThreshold <= 0 || out.ReviewThreshold > 1 {
		out.ReviewThreshold = def.ReviewThreshold
	}
	return out
}

// Fuse combines extraction confidence, match score, and rule outcomes into a
// composite score and routing decision. The composite is the minimum of the
// two signals so a single weak one cannot hide behind a strong one; each
// failed warn subtracts a fixed penalty and any block clamps the line to 0.
func Fuse(extractionConfidence, matchScore float64, validations []domain.ValidationResult, cfg FusionConfig) domain.Fusion {
	cfg = cfg.normalize()

	composite := extractionConfidence
	if matchScore < composite {
		composite = matchScore
	}

	blocked := false
	for _, v := range validations {
		if v.Passed {
			continue
		}
		switch v.Severity {
		case domain.SeverityBlock:
			blocked = true
		case domain.SeverityWarn:
			composite -= cfg.WarnPenalty
		}
	}

	if blocked {
		composite = 0
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}

	decision := domain.DecisionAutoAccept
	if blocked || composite < cfg.ReviewThreshold {
		decision = domain.DecisionNeedsReview
	}

	return domain.Fusion{Composite: composite, Decision: decision}
}

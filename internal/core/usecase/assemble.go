package usecase

import (
	"fmt"

	"github.com/krittawat/order-register/internal/core/domain"
)

// LineOutcome carries every per-candidate pipeline result into assembly.
type LineOutcome struct {
	Candidate   domain.LineCandidate
	Matches     []domain.SKUMatch
	Validations []domain.ValidationResult
	Fusion      domain.Fusion
}

// AssembleLines builds the ordered, finalized line items of a golden record.
// It is pure and deterministic given its inputs: every candidate yields
// exactly one line item, the top-ranked match is retained and runner-ups are
// kept for audit, and each line carries a provenance tag naming the stages
// that produced it. A structural mismatch between candidates and results is
// an assembly invariant violation, never auto-corrected.
func AssembleLines(extractorID string, outcomes []LineOutcome) ([]domain.LineItem, error) {
	lines := make([]domain.LineItem, 0, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.Candidate.Description == "" && outcome.Candidate.Quantity == 0 {
			return nil, domain.WrapError(domain.ErrAssemblyInvariant, "assemble lines",
				fmt.Errorf("outcome %d carries no candidate", i))
		}

		line := domain.LineItem{
			Index:       i,
			Candidate:   outcome.Candidate,
			Validations: outcome.Validations,
			Composite:   outcome.Fusion.Composite,
			Decision:    outcome.Fusion.Decision,
			Provenance: domain.Provenance{
				Extractor: extractorID,
				Rules:     ruleNames(outcome.Validations),
			},
		}
		if len(outcome.Matches) > 0 {
			top := outcome.Matches[0]
			line.Match = &top
			line.RunnersUp = outcome.Matches[1:]
			line.Provenance.MatchTier = top.Reason
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// RecordOutcome derives the header status and overall confidence from the
// finalized lines. Overall confidence is the minimum line composite; a record
// with no lines has nothing trustworthy in it and always routes to review.
// A line still holding a block-severity failure keeps the record out of
// validated regardless of its routing decision.
func RecordOutcome(lines []domain.LineItem) (domain.RecordStatus, float64) {
	if len(lines) == 0 {
		return domain.StatusNeedsReview, 0
	}

	status := domain.StatusValidated
	confidence := 1.0
	for _, line := range lines {
		if line.Decision == domain.DecisionNeedsReview || line.HasBlock() {
			status = domain.StatusNeedsReview
		}
		if line.Composite < confidence {
			confidence = line.Composite
		}
	}
	return status, confidence
}

func ruleNames(validations []domain.ValidationResult) []string {
	if len(validations) == 0 {
		return nil
	}
	names := make([]string, 0, len(validations))
	for _, v := range validations {
		names = append(names, v.Rule)
	}
	return names
}

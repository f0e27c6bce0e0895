package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

type ReviewUseCase struct {
	repo      ports.RecordRepository
	catalog   ports.CatalogProvider
	customers ports.CustomerDirectory
	rules     *RuleEngine
	fusionCfg FusionConfig
	logger    *slog.Logger
}

func NewReviewUseCase(
	repo ports.RecordRepository,
	catalog ports.CatalogProvider,
	customers ports.CustomerDirectory,
	rules *RuleEngine,
	fusionCfg FusionConfig,
	logger *slog.Logger,
) *ReviewUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewUseCase{
		repo:      repo,
		catalog:   catalog,
		customers: customers,
		rules:     rules,
		fusionCfg: fusionCfg,
		logger:    logger,
	}
}

// Queue lists records awaiting review, ordered by ascending composite
// confidence then descending order value.
func (uc *ReviewUseCase) Queue(ctx context.Context, limit int) ([]domain.ReviewTask, error) {
	tasks, err := uc.repo.ListReviewQueue(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	return tasks, nil
}

// Decide applies one reviewer decision, re-runs validation and fusion for the
// affected line(s) only, recomputes the record outcome, and appends the
// decision to the audit trail.
func (uc *ReviewUseCase) Decide(ctx context.Context, orderID string, decision domain.ReviewDecision) (*domain.GoldenRecord, error) {
	record, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch golden record: %w", err)
	}
	if record.Status != domain.StatusNeedsReview {
		return nil, domain.WrapError(domain.ErrIllegalStatusTransition, "apply review decision",
			fmt.Errorf("record %s is %s, not %s", orderID, record.Status, domain.StatusNeedsReview))
	}

	affected, err := uc.applyDecision(record, decision)
	if err != nil {
		return nil, err
	}

	index := uc.catalog.Current()
	customer := uc.loadCustomer(ctx, record.CustomerID)
	for _, idx := range affected {
		uc.revalidateLine(index, customer, &record.Lines[idx])
	}

	if decision.Action == domain.ReviewReject {
		record.Status = domain.StatusRejected
		record.Confidence = 0
	} else {
		record.Status, record.Confidence = RecordOutcome(record.Lines)
	}
	record.UpdatedAt = time.Now().UTC()

	if err := uc.repo.SaveAssembly(ctx, record); err != nil {
		return nil, fmt.Errorf("save reviewed record: %w", err)
	}
	if err := uc.repo.AppendAudit(ctx, orderID, domain.AuditEntry{
		At:     time.Now().UTC(),
		Actor:  decision.Actor,
		Action: "hitl_" + string(decision.Action),
		Detail: decisionDetail(decision),
	}); err != nil {
		return nil, fmt.Errorf("append decision audit: %w", err)
	}

	return record, nil
}

// applyDecision mutates the record lines and returns the indexes whose rules
// and fusion must be re-run.
func (uc *ReviewUseCase) applyDecision(record *domain.GoldenRecord, decision domain.ReviewDecision) ([]int, error) {
	if decision.Action == domain.ReviewReject {
		return nil, nil
	}
	if decision.LineIndex < 0 || decision.LineIndex >= len(record.Lines) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
			fmt.Errorf("line index %d out of range", decision.LineIndex))
	}
	line := &record.Lines[decision.LineIndex]

	switch decision.Action {
	case domain.ReviewApprove:
		// A block-severity failure cannot be approved away: the underlying
		// data must change first (correct, remap_sku) or the record must be
		// rejected.
		if line.HasBlock() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
				fmt.Errorf("line %d holds a block-severity validation", decision.LineIndex))
		}
		// Routing override only: composite and validations stay untouched and
		// the override is recorded in the audit trail.
		line.Decision = domain.DecisionAutoAccept
		return nil, nil

	case domain.ReviewCorrect:
		if err := applyCorrection(line, decision.Field, decision.Value); err != nil {
			return nil, err
		}
		return []int{decision.LineIndex}, nil

	case domain.ReviewRemapSKU:
		if decision.SKUID == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
				errors.New("remap_sku requires sku_id"))
		}
		line.Match = &domain.SKUMatch{SKUID: decision.SKUID, Score: 1.0, Reason: domain.MatchManual}
		line.Provenance.MatchTier = domain.MatchManual
		return []int{decision.LineIndex}, nil

	case domain.ReviewSplit:
		if decision.SplitQuantity <= 0 || decision.SplitQuantity >= line.Candidate.Quantity {
			return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
				fmt.Errorf("split quantity %d out of range for line of %d", decision.SplitQuantity, line.Candidate.Quantity))
		}
		split := *line
		split.Candidate.Quantity = line.Candidate.Quantity - decision.SplitQuantity
		line.Candidate.Quantity = decision.SplitQuantity
		record.Lines = append(record.Lines, split)
		reindexLines(record.Lines)
		return []int{decision.LineIndex, len(record.Lines) - 1}, nil

	case domain.ReviewMerge:
		other := decision.MergeLineIndex
		if other < 0 || other >= len(record.Lines) || other == decision.LineIndex {
			return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
				fmt.Errorf("merge line index %d invalid", other))
		}
		line.Candidate.Quantity += record.Lines[other].Candidate.Quantity
		record.Lines = append(record.Lines[:other], record.Lines[other+1:]...)
		reindexLines(record.Lines)
		target := decision.LineIndex
		if other < target {
			target--
		}
		return []int{target}, nil

	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "apply review decision",
			fmt.Errorf("unknown action %q", decision.Action))
	}
}

func applyCorrection(line *domain.LineItem, field, value string) error {
	switch field {
	case "description":
		line.Candidate.Description = value
	case "uom":
		line.Candidate.UOM = value
	case "quantity":
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			return domain.WrapError(domain.ErrInvalidInput, "apply correction",
				fmt.Errorf("invalid quantity %q", value))
		}
		line.Candidate.Quantity = qty
	case "unit_price":
		price, err := decimal.NewFromString(value)
		if err != nil {
			return domain.WrapError(domain.ErrInvalidInput, "apply correction",
				fmt.Errorf("invalid unit price %q", value))
		}
		line.Candidate.UnitPrice = &price
	default:
		return domain.WrapError(domain.ErrInvalidInput, "apply correction",
			fmt.Errorf("field %q is not correctable", field))
	}
	return nil
}

func (uc *ReviewUseCase) revalidateLine(index ports.CatalogIndex, customer *domain.Customer, line *domain.LineItem) {
	rctx := RuleContext{
		Candidate: line.Candidate,
		Match:     line.Match,
		Customer:  customer,
	}
	if line.Match != nil {
		if entry, ok := index.Entry(line.Match.SKUID); ok {
			rctx.Entry = &entry
		}
	}

	line.Validations = uc.rules.Validate(rctx)
	line.Provenance.Rules = ruleNames(line.Validations)

	matchScore := 0.0
	if line.Match != nil {
		matchScore = line.Match.Score
	}
	fusion := Fuse(line.Candidate.Confidence, matchScore, line.Validations, uc.fusionCfg)
	line.Composite = fusion.Composite
	line.Decision = fusion.Decision
}

func (uc *ReviewUseCase) loadCustomer(ctx context.Context, customerID string) *domain.Customer {
	customer, err := uc.customers.GetByID(ctx, customerID)
	if err != nil {
		uc.logger.Warn("customer_lookup_failed", "customer_id", customerID, "error", err)
		return nil
	}
	return customer
}

func reindexLines(lines []domain.LineItem) {
	for i := range lines {
		lines[i].Index = i
	}
}

func decisionDetail(decision domain.ReviewDecision) string {
	switch decision.Action {
	case domain.ReviewCorrect:
		return fmt.Sprintf("line=%d field=%s value=%s", decision.LineIndex, decision.Field, decision.Value)
	case domain.ReviewRemapSKU:
		return fmt.Sprintf("line=%d sku=%s", decision.LineIndex, decision.SKUID)
	case domain.ReviewSplit:
		return fmt.Sprintf("line=%d split_quantity=%d", decision.LineIndex, decision.SplitQuantity)
	case domain.ReviewMerge:
		return fmt.Sprintf("line=%d merged_from=%d", decision.LineIndex, decision.MergeLineIndex)
	case domain.ReviewReject:
		return "record rejected"
	default:
		return fmt.Sprintf("line=%d", decision.LineIndex)
	}
}

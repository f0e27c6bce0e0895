package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

const pipelineActor = "pipeline"

type ProcessOrderUseCase struct {
	repo        ports.RecordRepository
	extractor   ports.CandidateExtractor
	catalog     ports.CatalogProvider
	customers   ports.CustomerDirectory
	rules       *RuleEngine
	fusionCfg   FusionConfig
	extractorID string
	logger      *slog.Logger
}

func NewProcessOrderUseCase(
	repo ports.RecordRepository,
	extractor ports.CandidateExtractor,
	catalog ports.CatalogProvider,
	customers ports.CustomerDirectory,
	rules *RuleEngine,
	fusionCfg FusionConfig,
	extractorID string,
	logger *slog.Logger,
) *ProcessOrderUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessOrderUseCase{
		repo:        repo,
		extractor:   extractor,
		catalog:     catalog,
		customers:   customers,
		rules:       rules,
		fusionCfg:   fusionCfg,
		extractorID: extractorID,
		logger:      logger,
	}
}

// ProcessByID runs the full pipeline for one admitted order: extraction,
// per-candidate matching and validation, fusion, and assembly. Recoverable
// stage conditions become data on the record; only structural invariant
// violations and persistence failures propagate. A request that cannot be
// fully processed still yields a record in needs_review.
func (uc *ProcessOrderUseCase) ProcessByID(ctx context.Context, orderID string) error {
	record, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("fetch golden record: %w", err)
	}

	// The catalog snapshot is pinned for the whole run; a concurrent reload
	// installs a new index without touching this one.
	index := uc.catalog.Current()
	customer := uc.loadCustomer(ctx, record.CustomerID)

	candidates, extractionFailed := uc.extract(ctx, record)

	outcomes := make([]LineOutcome, 0, len(candidates))
	for _, candidate := range candidates {
		outcomes = append(outcomes, uc.resolveCandidate(index, customer, candidate))
	}

	lines, err := AssembleLines(uc.extractorID, outcomes)
	if err != nil {
		return err
	}

	status, confidence := RecordOutcome(lines)
	record.Lines = lines
	record.Status = status
	record.Confidence = confidence
	record.UpdatedAt = time.Now().UTC()

	if err := uc.repo.SaveAssembly(ctx, record); err != nil {
		return fmt.Errorf("save assembly: %w", err)
	}

	detail := fmt.Sprintf("lines=%d status=%s confidence=%.2f catalog=%s",
		len(lines), status, confidence, index.Version())
	if extractionFailed {
		detail += " extraction=unavailable"
	}
	if err := uc.repo.AppendAudit(ctx, orderID, domain.AuditEntry{
		At:     time.Now().UTC(),
		Actor:  pipelineActor,
		Action: "pipeline_completed",
		Detail: detail,
	}); err != nil {
		return fmt.Errorf("append pipeline audit: %w", err)
	}

	return nil
}

// extract never fails the pipeline: an unavailable extraction service yields
// zero candidates and the record routes to review instead of vanishing.
func (uc *ProcessOrderUseCase) extract(ctx context.Context, record *domain.GoldenRecord) ([]domain.LineCandidate, bool) {
	candidates, err := uc.extractor.Extract(ctx, record.RawText, record.AttachmentRefs)
	if err != nil {
		uc.logger.Warn("extraction_unavailable", "order_id", record.OrderID, "error", err)
		return nil, true
	}
	return candidates, false
}

// loadCustomer fails closed: a missing or unreadable customer record leaves
// Customer nil and the standing rule blocks the line.
func (uc *ProcessOrderUseCase) loadCustomer(ctx context.Context, customerID string) *domain.Customer {
	customer, err := uc.customers.GetByID(ctx, customerID)
	if err != nil {
		uc.logger.Warn("customer_lookup_failed", "customer_id", customerID, "error", err)
		return nil
	}
	return customer
}

func (uc *ProcessOrderUseCase) resolveCandidate(
	index ports.CatalogIndex,
	customer *domain.Customer,
	candidate domain.LineCandidate,
) LineOutcome {
	matches := index.Lookup(candidate.Description)

	rctx := RuleContext{
		Candidate: candidate,
		Customer:  customer,
	}
	if len(matches) > 0 {
		top := matches[0]
		rctx.Match = &top
		if entry, ok := index.Entry(top.SKUID); ok {
			rctx.Entry = &entry
		}
	}

	validations := uc.rules.Validate(rctx)

	matchScore := 0.0
	if len(matches) > 0 {
		matchScore = matches[0].Score
	}
	fusion := Fuse(candidate.Confidence, matchScore, validations, uc.fusionCfg)

	return LineOutcome{
		Candidate:   candidate,
		Matches:     matches,
		Validations: validations,
		Fusion:      fusion,
	}
}

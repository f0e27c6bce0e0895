package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

type IntakeOrderUseCase struct {
	ledger ports.IntakeLedger
	repo   ports.RecordRepository
	queue  ports.MessageQueue
}

func NewIntakeOrderUseCase(
	ledger ports.IntakeLedger,
	repo ports.RecordRepository,
	queue ports.MessageQueue,
) *IntakeOrderUseCase {
	return &IntakeOrderUseCase{
		ledger: ledger,
		repo:   repo,
		queue:  queue,
	}
}

// Submit admits one inbound request. The ledger admit is the sole
// deduplication mechanism: a duplicate is a routing outcome referencing the
// prior golden record, not an error, which makes retried webhook deliveries
// idempotent. The ledger key is persisted before the record so two
// near-simultaneous deliveries cannot both be accepted.
func (uc *IntakeOrderUseCase) Submit(ctx context.Context, req domain.Request) (domain.IntakeResult, error) {
	if err := validateRequest(req); err != nil {
		return domain.IntakeResult{}, err
	}
	if req.Fingerprint == "" {
		req.Fingerprint = domain.Fingerprint(req.RawText)
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now().UTC()
	}

	orderID := uuid.NewString()
	admit, err := uc.ledger.Admit(ctx, req.DedupKey(), orderID)
	if err != nil {
		return domain.IntakeResult{}, fmt.Errorf("admit request: %w", err)
	}
	if !admit.Accepted {
		return domain.IntakeResult{OrderID: admit.ExistingOrderID, Duplicate: true}, nil
	}

	now := time.Now().UTC()
	record := &domain.GoldenRecord{
		OrderID:        orderID,
		CustomerID:     req.CustomerID,
		Channel:        req.Channel,
		Fingerprint:    req.Fingerprint,
		RawText:        req.RawText,
		AttachmentRefs: req.AttachmentRefs,
		ReceivedAt:     req.ReceivedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         domain.StatusPending,
		Lines:          []domain.LineItem{},
	}
	if err := uc.repo.Create(ctx, record); err != nil {
		return domain.IntakeResult{}, fmt.Errorf("create golden record: %w", err)
	}

	if err := uc.queue.PublishOrderAdmitted(ctx, orderID); err != nil {
		// The ledger key is already claimed, so a retried delivery comes back
		// as a duplicate and nothing would ever re-publish this order. Fail it
		// into the review queue instead of stranding it in pending.
		if statusErr := uc.repo.UpdateStatus(ctx, orderID, domain.StatusNeedsReview); statusErr != nil {
			return domain.IntakeResult{}, fmt.Errorf("publish admitted order: %w", errors.Join(err, statusErr))
		}
		_ = uc.repo.AppendAudit(ctx, orderID, domain.AuditEntry{
			At:     time.Now().UTC(),
			Actor:  "system",
			Action: "queue_publish_failed",
			Detail: err.Error(),
		})
		return domain.IntakeResult{OrderID: orderID}, nil
	}

	return domain.IntakeResult{OrderID: orderID}, nil
}

func validateRequest(req domain.Request) error {
	if strings.TrimSpace(req.CustomerID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit request", errors.New("customer_id is required"))
	}
	if strings.TrimSpace(req.Channel) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit request", errors.New("channel is required"))
	}
	if strings.TrimSpace(req.RawText) == "" && len(req.AttachmentRefs) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "submit request", errors.New("message text or attachments required"))
	}
	return nil
}

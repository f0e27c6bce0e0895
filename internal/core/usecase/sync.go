package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

type SyncRecordUseCase struct {
	repo   ports.RecordRepository
	erp    ports.ERPGateway
	logger *slog.Logger
}

func NewSyncRecordUseCase(repo ports.RecordRepository, erp ports.ERPGateway, logger *slog.Logger) *SyncRecordUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRecordUseCase{repo: repo, erp: erp, logger: logger}
}

// SyncByID emits a validated record to the ERP boundary as an immutable
// snapshot. The gateway applies it idempotently keyed by order id; the
// reported outcome lands in the audit trail either way. Only a successful
// push moves the record to its terminal synced state.
func (uc *SyncRecordUseCase) SyncByID(ctx context.Context, orderID string) (domain.SyncReport, error) {
	record, err := uc.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.SyncReport{}, fmt.Errorf("fetch golden record: %w", err)
	}
	if record.Status != domain.StatusValidated {
		return domain.SyncReport{}, domain.WrapError(domain.ErrIllegalStatusTransition, "sync record",
			fmt.Errorf("record %s is %s, not %s", orderID, record.Status, domain.StatusValidated))
	}

	snapshot := *record
	report, pushErr := uc.erp.PushOrder(ctx, &snapshot)
	if pushErr != nil {
		uc.audit(ctx, orderID, "erp_sync_failed", pushErr.Error())
		return domain.SyncReport{}, fmt.Errorf("push order to erp: %w", pushErr)
	}

	uc.audit(ctx, orderID, "erp_sync", fmt.Sprintf("status=%s %s", report.Status, report.Detail))

	if err := uc.repo.UpdateStatus(ctx, orderID, domain.StatusSynced); err != nil {
		return report, fmt.Errorf("mark record synced: %w", err)
	}
	return report, nil
}

func (uc *SyncRecordUseCase) audit(ctx context.Context, orderID, action, detail string) {
	err := uc.repo.AppendAudit(ctx, orderID, domain.AuditEntry{
		At:     time.Now().UTC(),
		Actor:  pipelineActor,
		Action: action,
		Detail: detail,
	})
	if err != nil {
		uc.logger.Error("audit_append_failed", "order_id", orderID, "action", action, "error", err)
	}
}

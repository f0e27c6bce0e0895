package ports

import (
	"context"

	"github.com/krittawat/order-register/internal/core/domain"
)

// OrderIntake is the inbound contract for admitting raw order messages.
type OrderIntake interface {
	Submit(ctx context.Context, req domain.Request) (domain.IntakeResult, error)
}

// OrderProcessor runs the normalization-and-matching pipeline for one
// admitted order.
type OrderProcessor interface {
	ProcessByID(ctx context.Context, orderID string) error
}

// RecordReader is the inbound read model for golden records.
type RecordReader interface {
	GetByID(ctx context.Context, orderID string) (*domain.GoldenRecord, error)
}

// ReviewService exposes the HITL queue and applies reviewer decisions.
type ReviewService interface {
	Queue(ctx context.Context, limit int) ([]domain.ReviewTask, error)
	Decide(ctx context.Context, orderID string, decision domain.ReviewDecision) (*domain.GoldenRecord, error)
}

// RecordSyncer emits validated records to the ERP boundary.
type RecordSyncer interface {
	SyncByID(ctx context.Context, orderID string) (domain.SyncReport, error)
}

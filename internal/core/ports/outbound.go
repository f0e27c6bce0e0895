package ports

import (
	"context"
	"io"

	"github.com/krittawat/order-register/internal/core/domain"
)

// AdmitResult is the ledger's answer to one admit attempt.
type AdmitResult struct {
	Accepted        bool
	ExistingOrderID string
}

// IntakeLedger deduplicates inbound requests. Admit must be an atomic
// check-and-set: two concurrent deliveries of the same key see exactly one
// Accepted=true. Keys are append-only and never deleted.
type IntakeLedger interface {
	Admit(ctx context.Context, key domain.DedupKey, orderID string) (AdmitResult, error)
}

// RecordRepository persists golden records and their append-only audit trail.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.GoldenRecord) error
	GetByID(ctx context.Context, orderID string) (*domain.GoldenRecord, error)
	SaveAssembly(ctx context.Context, record *domain.GoldenRecord) error
	UpdateStatus(ctx context.Context, orderID string, status domain.RecordStatus) error
	AppendAudit(ctx context.Context, orderID string, entry domain.AuditEntry) error
	ListReviewQueue(ctx context.Context, limit int) ([]domain.ReviewTask, error)
}

// CandidateExtractor turns raw message text plus attachment refs into
// unvalidated line candidates. Zero candidates is a valid outcome, not an
// error; service unavailability surfaces as domain.ErrExtractionUnavailable.
type CandidateExtractor interface {
	Extract(ctx context.Context, text string, attachmentRefs []string) ([]domain.LineCandidate, error)
}

// CatalogIndex resolves candidate descriptions against one immutable catalog
// snapshot. Lookup is pure and safe for concurrent use.
type CatalogIndex interface {
	Lookup(description string) []domain.SKUMatch
	Entry(skuID string) (domain.CatalogEntry, bool)
	Version() string
}

// CatalogProvider hands out the current catalog snapshot. Reloads install a
// new snapshot; in-flight pipelines keep the one they started with.
type CatalogProvider interface {
	Current() CatalogIndex
}

// CustomerDirectory reads customer master data.
type CustomerDirectory interface {
	GetByID(ctx context.Context, customerID string) (*domain.Customer, error)
}

// MessageQueue carries admitted order ids from intake to the pipeline worker.
type MessageQueue interface {
	PublishOrderAdmitted(ctx context.Context, orderID string) error
	SubscribeOrderAdmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores message attachments.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ERPGateway applies a finalized record snapshot idempotently, keyed by order id.
type ERPGateway interface {
	PushOrder(ctx context.Context, record *domain.GoldenRecord) (domain.SyncReport, error)
}

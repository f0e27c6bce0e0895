// Package memory provides in-process implementations of the ledger, record
// repository, customer directory, and queue for the demo CLI and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

type IntakeLedger struct {
	mu   sync.Mutex
	keys map[domain.DedupKey]string
}

func NewIntakeLedger() *IntakeLedger {
	return &IntakeLedger{keys: make(map[domain.DedupKey]string)}
}

// Admit performs the check-and-set under one lock so concurrent deliveries
// of the same key cannot both be accepted.
func (l *IntakeLedger) Admit(_ context.Context, key domain.DedupKey, orderID string) (ports.AdmitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.keys[key]; ok {
		return ports.AdmitResult{Accepted: false, ExistingOrderID: existing}, nil
	}
	l.keys[key] = orderID
	return ports.AdmitResult{Accepted: true}, nil
}

type RecordRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.GoldenRecord
	order   []string
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{records: make(map[string]*domain.GoldenRecord)}
}

func (r *RecordRepository) Create(_ context.Context, record *domain.GoldenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.OrderID]; ok {
		return fmt.Errorf("record %s already exists", record.OrderID)
	}
	stored := cloneRecord(record)
	r.records[record.OrderID] = stored
	r.order = append(r.order, record.OrderID)
	return nil
}

func (r *RecordRepository) GetByID(_ context.Context, orderID string) (*domain.GoldenRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[orderID]
	if !ok {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "get golden record", fmt.Errorf("order %s", orderID))
	}
	return cloneRecord(record), nil
}

func (r *RecordRepository) SaveAssembly(_ context.Context, record *domain.GoldenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.OrderID]
	if !ok {
		return domain.WrapError(domain.ErrRecordNotFound, "save assembly", fmt.Errorf("order %s", record.OrderID))
	}
	clone := cloneRecord(record)
	clone.Audit = stored.Audit
	r.records[record.OrderID] = clone
	return nil
}

func (r *RecordRepository) UpdateStatus(_ context.Context, orderID string, status domain.RecordStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[orderID]
	if !ok {
		return domain.WrapError(domain.ErrRecordNotFound, "update record status", fmt.Errorf("order %s", orderID))
	}
	record.Status = status
	return nil
}

func (r *RecordRepository) AppendAudit(_ context.Context, orderID string, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[orderID]
	if !ok {
		return domain.WrapError(domain.ErrRecordNotFound, "append audit entry", fmt.Errorf("order %s", orderID))
	}
	record.Audit = append(record.Audit, entry)
	return nil
}

func (r *RecordRepository) ListReviewQueue(_ context.Context, limit int) ([]domain.ReviewTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []domain.ReviewTask
	for _, record := range r.records {
		if record.Status != domain.StatusNeedsReview {
			continue
		}
		tasks = append(tasks, domain.ReviewTask{
			OrderID:     record.OrderID,
			CustomerID:  record.CustomerID,
			Channel:     record.Channel,
			Confidence:  record.Confidence,
			OrderValue:  record.OrderValue(),
			LineCount:   len(record.Lines),
			LineIndexes: record.LinesNeedingReview(),
			ReceivedAt:  record.ReceivedAt,
		})
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Confidence != tasks[j].Confidence {
			return tasks[i].Confidence < tasks[j].Confidence
		}
		if !tasks[i].OrderValue.Equal(tasks[j].OrderValue) {
			return tasks[i].OrderValue.GreaterThan(tasks[j].OrderValue)
		}
		return tasks[i].OrderID < tasks[j].OrderID
	})

	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// All returns records in creation order, for the demo dashboard.
func (r *RecordRepository) All(_ context.Context) []*domain.GoldenRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.GoldenRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneRecord(r.records[id]))
	}
	return out
}

type CustomerDirectory struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
}

func NewCustomerDirectory(customers ...domain.Customer) *CustomerDirectory {
	d := &CustomerDirectory{customers: make(map[string]domain.Customer, len(customers))}
	for _, c := range customers {
		d.customers[c.ID] = c
	}
	return d
}

func (d *CustomerDirectory) GetByID(_ context.Context, customerID string) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	customer, ok := d.customers[customerID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCustomerNotFound, "get customer", fmt.Errorf("customer %s", customerID))
	}
	return &customer, nil
}

func cloneRecord(record *domain.GoldenRecord) *domain.GoldenRecord {
	clone := *record
	clone.Lines = append([]domain.LineItem(nil), record.Lines...)
	clone.Audit = append([]domain.AuditEntry(nil), record.Audit...)
	clone.AttachmentRefs = append([]string(nil), record.AttachmentRefs...)
	return &clone
}

// Queue is an in-process stand-in for the message broker: published order
// ids accumulate until drained by the caller.
type Queue struct {
	mu  sync.Mutex
	ids []string
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) PublishOrderAdmitted(_ context.Context, orderID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, orderID)
	return nil
}

// SubscribeOrderAdmitted replays everything published so far, in order, then
// returns. It does not block waiting for new publishes.
func (q *Queue) SubscribeOrderAdmitted(ctx context.Context, handler func(context.Context, string) error) error {
	for {
		orderID, ok := q.pop()
		if !ok {
			return nil
		}
		if err := handler(ctx, orderID); err != nil {
			return err
		}
	}
}

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", false
	}
	orderID := q.ids[0]
	q.ids = q.ids[1:]
	return orderID, true
}

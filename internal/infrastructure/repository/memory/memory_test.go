package memory

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
)

func TestIntakeLedgerConcurrentAdmitAcceptsExactlyOnce(t *testing.T) {
	ledger := NewIntakeLedger()
	key := domain.DedupKey{CustomerID: "acme-steel", Channel: "email", Fingerprint: "abc"}

	const workers = 16
	var wg sync.WaitGroup
	accepted := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		orderID := "ord-" + string(rune('a'+i))
		go func() {
			defer wg.Done()
			result, err := ledger.Admit(context.Background(), key, orderID)
			if err != nil {
				t.Errorf("Admit() error = %v", err)
				return
			}
			if result.Accepted {
				accepted <- orderID
			}
		}()
	}
	wg.Wait()
	close(accepted)

	var winners []string
	for id := range accepted {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one accepted admit, got %v", winners)
	}

	result, err := ledger.Admit(context.Background(), key, "ord-late")
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if result.Accepted || result.ExistingOrderID != winners[0] {
		t.Fatalf("expected duplicate pointing at %s, got %+v", winners[0], result)
	}
}

func TestRecordRepositoryCloneIsolation(t *testing.T) {
	repo := NewRecordRepository()
	record := &domain.GoldenRecord{
		OrderID: "ord-1",
		Status:  domain.StatusPending,
		Lines: []domain.LineItem{{
			Index:     0,
			Candidate: domain.LineCandidate{Description: "copper cable 1.5", Quantity: 5},
		}},
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Mutating the caller's copy must not leak into storage.
	record.Lines[0].Candidate.Quantity = 99
	record.Status = domain.StatusRejected

	got, err := repo.GetByID(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Lines[0].Candidate.Quantity != 5 || got.Status != domain.StatusPending {
		t.Fatalf("stored record mutated through caller reference: %+v", got)
	}

	// And mutating the returned copy must not leak either.
	got.Lines[0].Candidate.Quantity = 7
	again, err := repo.GetByID(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if again.Lines[0].Candidate.Quantity != 5 {
		t.Fatalf("stored record mutated through returned reference: %+v", again)
	}
}

func TestRecordRepositorySaveAssemblyPreservesAudit(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()
	if err := repo.Create(ctx, &domain.GoldenRecord{OrderID: "ord-1", Status: domain.StatusPending}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.AppendAudit(ctx, "ord-1", domain.AuditEntry{Actor: "system", Action: "pipeline_completed"}); err != nil {
		t.Fatalf("AppendAudit() error = %v", err)
	}

	if err := repo.SaveAssembly(ctx, &domain.GoldenRecord{OrderID: "ord-1", Status: domain.StatusValidated}); err != nil {
		t.Fatalf("SaveAssembly() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.StatusValidated {
		t.Fatalf("expected validated, got %s", got.Status)
	}
	if len(got.Audit) != 1 || got.Audit[0].Action != "pipeline_completed" {
		t.Fatalf("expected audit trail preserved, got %+v", got.Audit)
	}
}

func TestRecordRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()

	if _, err := repo.GetByID(ctx, "missing"); !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("GetByID: expected ErrRecordNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, "missing", domain.StatusSynced); !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("UpdateStatus: expected ErrRecordNotFound, got %v", err)
	}
	if err := repo.SaveAssembly(ctx, &domain.GoldenRecord{OrderID: "missing"}); !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("SaveAssembly: expected ErrRecordNotFound, got %v", err)
	}
}

func TestRecordRepositoryReviewQueueOrderedByConfidenceThenValue(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()
	price := decimal.RequireFromString("100.00")

	records := []*domain.GoldenRecord{
		{OrderID: "ord-high-conf", Status: domain.StatusNeedsReview, Confidence: 0.7},
		{OrderID: "ord-low-cheap", Status: domain.StatusNeedsReview, Confidence: 0.2},
		{
			OrderID:    "ord-low-valuable",
			Status:     domain.StatusNeedsReview,
			Confidence: 0.2,
			Lines: []domain.LineItem{{
				Candidate: domain.LineCandidate{Description: "switch", Quantity: 3, UnitPrice: &price},
			}},
		},
		{OrderID: "ord-done", Status: domain.StatusValidated, Confidence: 0.1},
	}
	for _, record := range records {
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create(%s) error = %v", record.OrderID, err)
		}
	}

	tasks, err := repo.ListReviewQueue(ctx, 0)
	if err != nil {
		t.Fatalf("ListReviewQueue() error = %v", err)
	}
	got := make([]string, 0, len(tasks))
	for _, task := range tasks {
		got = append(got, task.OrderID)
	}
	want := []string{"ord-low-valuable", "ord-low-cheap", "ord-high-conf"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	limited, err := repo.ListReviewQueue(ctx, 1)
	if err != nil {
		t.Fatalf("ListReviewQueue(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].OrderID != "ord-low-valuable" {
		t.Fatalf("expected limit to keep lowest-confidence highest-value task, got %+v", limited)
	}
}

func TestRecordRepositoryReviewQueueReportsLineIndexes(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository()

	record := &domain.GoldenRecord{
		OrderID:    "ord-mixed",
		Status:     domain.StatusNeedsReview,
		Confidence: 0.4,
		Lines: []domain.LineItem{
			{Index: 0, Decision: domain.DecisionAutoAccept},
			{Index: 1, Decision: domain.DecisionNeedsReview},
			{Index: 2, Decision: domain.DecisionAutoAccept, Validations: []domain.ValidationResult{
				{Rule: "uom_permitted", Passed: false, Severity: domain.SeverityBlock},
			}},
		},
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tasks, err := repo.ListReviewQueue(ctx, 0)
	if err != nil {
		t.Fatalf("ListReviewQueue() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].LineCount != 3 {
		t.Fatalf("line count = %d, want 3", tasks[0].LineCount)
	}
	if !reflect.DeepEqual(tasks[0].LineIndexes, []int{1, 2}) {
		t.Fatalf("line indexes = %v, want [1 2]", tasks[0].LineIndexes)
	}
}

func TestCustomerDirectoryLookup(t *testing.T) {
	directory := NewCustomerDirectory(domain.Customer{ID: "acme-steel", Name: "Acme Steel"})

	customer, err := directory.GetByID(context.Background(), "acme-steel")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if customer.Name != "Acme Steel" {
		t.Fatalf("unexpected customer: %+v", customer)
	}

	if _, err := directory.GetByID(context.Background(), "ghost"); !domain.IsKind(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestQueueReplaysPublishedOrder(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue()
	for _, id := range []string{"ord-1", "ord-2", "ord-3"} {
		if err := queue.PublishOrderAdmitted(ctx, id); err != nil {
			t.Fatalf("PublishOrderAdmitted(%s) error = %v", id, err)
		}
	}

	var seen []string
	err := queue.SubscribeOrderAdmitted(ctx, func(_ context.Context, orderID string) error {
		seen = append(seen, orderID)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeOrderAdmitted() error = %v", err)
	}
	if len(seen) != 3 || seen[0] != "ord-1" || seen[2] != "ord-3" {
		t.Fatalf("expected ordered replay, got %v", seen)
	}

	// The queue is drained; a second subscribe sees nothing.
	err = queue.SubscribeOrderAdmitted(ctx, func(context.Context, string) error {
		t.Fatal("unexpected redelivery")
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeOrderAdmitted() error = %v", err)
	}
}

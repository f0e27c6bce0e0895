package postgres

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/krittawat/order-register/internal/core/domain"
)

func TestRecordRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRecordRepository(db)
	mock.ExpectQuery("FROM golden_records").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordRepositoryGetByIDLoadsLinesAndAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRecordRepository(db)
	lines := []domain.LineItem{{
		Index:     0,
		Candidate: domain.LineCandidate{Description: "copper cable 1.5", Quantity: 5, UOM: "m"},
		Match:     &domain.SKUMatch{SKUID: "SKU-1", Score: 1.0, Reason: domain.MatchExact},
		Decision:  domain.DecisionAutoAccept,
		Composite: 0.9,
	}}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		t.Fatalf("marshal lines: %v", err)
	}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM golden_records").
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"order_id", "customer_id", "channel", "fingerprint", "raw_text", "attachment_refs",
			"received_at", "created_at", "updated_at", "promised_date", "status", "confidence", "lines",
		}).AddRow("ord-1", "acme-steel", "email", "abc123", "5m copper cable 1.5", []byte(`[]`),
			now, now, now, nil, string(domain.StatusValidated), 0.9, linesJSON))
	mock.ExpectQuery("FROM order_audit").
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"at", "actor", "action", "detail"}).
			AddRow(now, "system", "pipeline_completed", "lines=1"))

	record, err := repo.GetByID(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if record.Status != domain.StatusValidated {
		t.Fatalf("expected validated, got %s", record.Status)
	}
	if len(record.Lines) != 1 || record.Lines[0].Match.SKUID != "SKU-1" {
		t.Fatalf("unexpected lines: %+v", record.Lines)
	}
	if len(record.Audit) != 1 || record.Audit[0].Action != "pipeline_completed" {
		t.Fatalf("unexpected audit: %+v", record.Audit)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordRepositorySaveAssemblyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRecordRepository(db)
	mock.ExpectExec("UPDATE golden_records").
		WithArgs("missing", string(domain.StatusValidated), 0.9, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	record := &domain.GoldenRecord{OrderID: "missing", Status: domain.StatusValidated, Confidence: 0.9}
	err = repo.SaveAssembly(context.Background(), record)
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordRepositoryListReviewQueueOrdering(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRecordRepository(db)
	now := time.Now().UTC()
	lowLines := []byte(`[
		{"index":0,"decision":"needs_review"},
		{"index":1,"decision":"auto_accept"},
		{"index":2,"decision":"auto_accept","validations":[{"rule":"price_band","passed":false,"severity":"block"}]}
	]`)
	midLines := []byte(`[{"index":0,"decision":"needs_review"}]`)
	mock.ExpectQuery("ORDER BY confidence ASC, order_value DESC").
		WithArgs(string(domain.StatusNeedsReview), 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"order_id", "customer_id", "channel", "confidence", "order_value", "lines", "received_at",
		}).
			AddRow("ord-low", "acme-steel", "email", 0.2, "1500.00", lowLines, now).
			AddRow("ord-mid", "bright-energy", "line_oa", 0.55, "200.00", midLines, now))

	tasks, err := repo.ListReviewQueue(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListReviewQueue() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].OrderID != "ord-low" || tasks[0].LineCount != 3 {
		t.Fatalf("unexpected first task: %+v", tasks[0])
	}
	// Line 1 is clean and auto-accepted; 0 routed to review, 2 holds a block.
	if !reflect.DeepEqual(tasks[0].LineIndexes, []int{0, 2}) {
		t.Fatalf("first task line indexes = %v, want [0 2]", tasks[0].LineIndexes)
	}
	if tasks[1].Confidence != 0.55 {
		t.Fatalf("unexpected second task: %+v", tasks[1])
	}
	if !reflect.DeepEqual(tasks[1].LineIndexes, []int{0}) {
		t.Fatalf("second task line indexes = %v, want [0]", tasks[1].LineIndexes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordRepositoryAppendAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewRecordRepository(db)
	entry := domain.AuditEntry{At: time.Now().UTC(), Actor: "reviewer", Action: "hitl_approve", Detail: "line=0"}
	mock.ExpectExec("INSERT INTO order_audit").
		WithArgs("ord-1", entry.At, "reviewer", "hitl_approve", "line=0").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.AppendAudit(context.Background(), "ord-1", entry); err != nil {
		t.Fatalf("AppendAudit() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

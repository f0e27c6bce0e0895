package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krittawat/order-register/internal/core/domain"
)

func syncableRecord() *domain.GoldenRecord {
	return &domain.GoldenRecord{
		OrderID:    "ord-42",
		CustomerID: "acme-steel",
		Channel:    "email",
		Status:     domain.StatusValidated,
		Lines: []domain.LineItem{
			{
				Index:     0,
				Candidate: domain.LineCandidate{Description: "Copper cable 1.5", Quantity: 5, UOM: "m"},
				Match:     &domain.SKUMatch{SKUID: "SKU-1", Score: 1.0, Reason: domain.MatchExact},
				Decision:  domain.DecisionAutoAccept,
				Composite: 0.9,
			},
		},
	}
}

func TestPushOrderSendsSnapshot(t *testing.T) {
	var gotIdempotencyKey string
	var gotRecord domain.GoldenRecord
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotRecord); err != nil {
			t.Errorf("decode record: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(syncResponse{Status: "accepted", Detail: "queued"})
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	report, err := client.PushOrder(context.Background(), syncableRecord())
	if err != nil {
		t.Fatalf("push order: %v", err)
	}

	if gotIdempotencyKey != "ord-42" {
		t.Fatalf("expected idempotency key ord-42, got %q", gotIdempotencyKey)
	}
	if gotRecord.OrderID != "ord-42" || len(gotRecord.Lines) != 1 {
		t.Fatalf("unexpected record payload: %+v", gotRecord)
	}
	if report.OrderID != "ord-42" || report.Status != "accepted" || report.Detail != "queued" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestPushOrderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate order", http.StatusConflict)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	_, err := client.PushOrder(context.Background(), syncableRecord())
	if err == nil {
		t.Fatal("expected error on 409")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate order") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestPushOrderConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := New(server.URL, time.Second, nil)
	_, err := client.PushOrder(context.Background(), syncableRecord())
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary kind, got %v", err)
	}
}

// Package erp pushes finalized golden records to the ERP sync boundary.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type syncResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// PushOrder posts the record snapshot. The order id doubles as the
// idempotency key so a retried push is applied at most once on the ERP side.
func (c *Client) PushOrder(ctx context.Context, record *domain.GoldenRecord) (domain.SyncReport, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return domain.SyncReport{}, fmt.Errorf("marshal record snapshot: %w", err)
	}

	var response syncResponse
	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build sync request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", record.OrderID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("call erp: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("erp status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return fmt.Errorf("decode erp response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "erp.push", call, classifyERPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.SyncReport{}, domain.WrapError(domain.ErrTemporary, "push order", err)
	}

	return domain.SyncReport{
		OrderID: record.OrderID,
		Status:  response.Status,
		Detail:  response.Detail,
	}, nil
}

func classifyERPError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// Package service calls the external extraction service over HTTP. The rest
// of the pipeline treats its output exactly like the built-in pattern
// extractor's: candidates with explicit per-field confidence.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/infrastructure/resilience"
)

const ExtractorID = "service/v1"

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

type extractRequest struct {
	Text           string   `json:"text"`
	AttachmentRefs []string `json:"attachment_refs,omitempty"`
}

// candidatePayload mirrors the service's wire format. Optional fields are
// pointers: an absent confidence is not the same as a zero one.
type candidatePayload struct {
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UOM         *string          `json:"uom,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Confidence  *float64         `json:"confidence,omitempty"`
}

type extractResponse struct {
	Candidates []candidatePayload `json:"candidates"`
}

// Extract posts the raw message to the extraction service. Transport and
// server-side failures surface as ErrExtractionUnavailable so the pipeline
// routes the record to review instead of aborting; retry is left to the
// caller.
func (c *Client) Extract(ctx context.Context, text string, attachmentRefs []string) ([]domain.LineCandidate, error) {
	var response extractResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/extract", extractRequest{
			Text:           text,
			AttachmentRefs: attachmentRefs,
		}, &response)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "extractor.extract", call, classifyExtractionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtractionUnavailable, "extract candidates", err)
	}

	candidates := make([]domain.LineCandidate, 0, len(response.Candidates))
	for _, payload := range response.Candidates {
		candidates = append(candidates, payload.toCandidate())
	}
	return candidates, nil
}

func (p candidatePayload) toCandidate() domain.LineCandidate {
	candidate := domain.LineCandidate{
		Description: p.Description,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		Extractor:   ExtractorID,
	}
	if p.UOM != nil {
		candidate.UOM = *p.UOM
	}
	if p.Confidence != nil {
		candidate.Confidence = *p.Confidence
	}
	return candidate
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{
			Operation:  "extract",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode extract response: %w", err)
	}
	return nil
}

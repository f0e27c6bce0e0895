package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RecordStatus string

const (
	StatusPending     RecordStatus = "pending"
	StatusNeedsReview RecordStatus = "needs_review"
	StatusValidated   RecordStatus = "validated"
	StatusRejected    RecordStatus = "rejected"
	StatusSynced      RecordStatus = "synced"
)

// Request is one inbound order message prior to deduplication.
type Request struct {
	CustomerID     string    `json:"customer_id"`
	Channel        string    `json:"channel"`
	Fingerprint    string    `json:"fingerprint"`
	RawText        string    `json:"raw_text"`
	AttachmentRefs []string  `json:"attachment_refs,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

// NormalizeMessage collapses whitespace and case-folds message text so that
// retried deliveries of the same message produce the same fingerprint.
func NormalizeMessage(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint is the deterministic content hash used in the dedup key.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(NormalizeMessage(text)))
	return hex.EncodeToString(sum[:])
}

// DedupKey identifies a logical request: two deliveries with the same key are
// the same order.
func (r Request) DedupKey() DedupKey {
	return DedupKey{CustomerID: r.CustomerID, Channel: r.Channel, Fingerprint: r.Fingerprint}
}

type DedupKey struct {
	CustomerID  string
	Channel     string
	Fingerprint string
}

// IntakeResult reports the admit outcome. Duplicate is a routing outcome,
// not a failure: OrderID then references the previously created record.
type IntakeResult struct {
	OrderID   string `json:"order_id"`
	Duplicate bool   `json:"duplicate"`
}

// LineCandidate is an unvalidated line item produced by extraction.
type LineCandidate struct {
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UOM         string           `json:"uom,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Confidence  float64          `json:"confidence"`
	Extractor   string           `json:"extractor"`
}

type MatchReason string

const (
	MatchExact   MatchReason = "exact"
	MatchSynonym MatchReason = "synonym"
	MatchFuzzy   MatchReason = "fuzzy"
	// MatchManual marks a reviewer remap, never produced by the matcher.
	MatchManual MatchReason = "manual"
)

// SKUMatch is one ranked catalog resolution for a candidate description.
type SKUMatch struct {
	SKUID  string      `json:"sku_id"`
	Score  float64     `json:"score"`
	Reason MatchReason `json:"reason"`
}

type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

type ValidationResult struct {
	Rule     string   `json:"rule"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity,omitempty"`
	Message  string   `json:"message,omitempty"`
}

type RoutingDecision string

const (
	DecisionAutoAccept  RoutingDecision = "auto_accept"
	DecisionNeedsReview RoutingDecision = "needs_review"
)

// Fusion is the composite confidence plus routing decision for one line.
type Fusion struct {
	Composite float64         `json:"composite"`
	Decision  RoutingDecision `json:"decision"`
}

// Provenance names the stage that produced each part of a line item.
type Provenance struct {
	Extractor string      `json:"extractor"`
	MatchTier MatchReason `json:"match_tier,omitempty"`
	Rules     []string    `json:"rules,omitempty"`
}

// LineItem is a finalized golden-record line: exactly one per candidate.
type LineItem struct {
	Index       int                `json:"index"`
	Candidate   LineCandidate      `json:"candidate"`
	Match       *SKUMatch          `json:"match,omitempty"`
	RunnersUp   []SKUMatch         `json:"runners_up,omitempty"`
	Validations []ValidationResult `json:"validations,omitempty"`
	Composite   float64            `json:"composite"`
	Decision    RoutingDecision    `json:"decision"`
	Provenance  Provenance         `json:"provenance"`
}

func (l LineItem) HasBlock() bool {
	for _, v := range l.Validations {
		if !v.Passed && v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Value is the candidate's order value, zero when no unit price was extracted.
func (l LineItem) Value() decimal.Decimal {
	if l.Candidate.UnitPrice == nil {
		return decimal.Zero
	}
	return l.Candidate.UnitPrice.Mul(decimal.NewFromInt(int64(l.Candidate.Quantity)))
}

// AuditEntry is one append-only audit trail event (HITL decisions, sync attempts).
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// GoldenRecord is the validated, provenance-tracked representation of a
// customer order. Exactly one exists per dedup key.
type GoldenRecord struct {
	OrderID        string       `json:"order_id"`
	CustomerID     string       `json:"customer_id"`
	Channel        string       `json:"channel"`
	Fingerprint    string       `json:"fingerprint"`
	RawText        string       `json:"raw_text"`
	AttachmentRefs []string     `json:"attachment_refs,omitempty"`
	ReceivedAt     time.Time    `json:"received_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	PromisedDate   *time.Time   `json:"promised_date,omitempty"`
	Status         RecordStatus `json:"status"`
	Confidence     float64      `json:"confidence"`
	Lines          []LineItem   `json:"lines"`
	Audit          []AuditEntry `json:"audit,omitempty"`
}

// OrderValue is the business-impact weight used to order the review queue.
func (r GoldenRecord) OrderValue() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Value())
	}
	return total
}

// LinesNeedingReview lists the indexes of lines that keep the record in the
// review queue: routed needs_review or still holding a block-severity failure.
func (r GoldenRecord) LinesNeedingReview() []int {
	var indexes []int
	for _, line := range r.Lines {
		if line.Decision == DecisionNeedsReview || line.HasBlock() {
			indexes = append(indexes, line.Index)
		}
	}
	return indexes
}

// ReviewAction is a HITL decision kind.
type ReviewAction string

const (
	ReviewApprove  ReviewAction = "approve"
	ReviewCorrect  ReviewAction = "correct"
	ReviewRemapSKU ReviewAction = "remap_sku"
	ReviewSplit    ReviewAction = "split"
	ReviewMerge    ReviewAction = "merge"
	ReviewReject   ReviewAction = "reject"
)

// ReviewDecision is one reviewer decision applied to a record line.
type ReviewDecision struct {
	Action    ReviewAction `json:"action"`
	LineIndex int          `json:"line_index"`
	Actor     string       `json:"actor"`

	// correct
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	// remap_sku
	SKUID string `json:"sku_id,omitempty"`
	// split
	SplitQuantity int `json:"split_quantity,omitempty"`
	// merge
	MergeLineIndex int `json:"merge_line_index,omitempty"`
}

// ReviewTask is one entry of the HITL queue.
type ReviewTask struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Channel    string          `json:"channel"`
	Confidence float64         `json:"confidence"`
	OrderValue decimal.Decimal `json:"order_value"`
	LineCount  int             `json:"line_count"`
	// LineIndexes points reviewers at the lines that need attention;
	// the remaining lines are already auto-accepted.
	LineIndexes []int     `json:"line_indexes"`
	ReceivedAt  time.Time `json:"received_at"`
}

// SyncReport is the ERP layer's outcome for one emitted record. The core
// records it in the audit trail but does not act on it beyond status.
type SyncReport struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krittawat/order-register/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, record *domain.GoldenRecord) error {
	refsJSON, err := json.Marshal(refsOrEmpty(record.AttachmentRefs))
	if err != nil {
		return fmt.Errorf("marshal attachment refs: %w", err)
	}
	linesJSON, err := json.Marshal(linesOrEmpty(record.Lines))
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO golden_records (
	order_id, customer_id, channel, fingerprint, raw_text, attachment_refs,
	received_at, created_at, updated_at, promised_date, status, confidence, order_value, lines
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		record.OrderID, record.CustomerID, record.Channel, record.Fingerprint,
		record.RawText, refsJSON, record.ReceivedAt, record.CreatedAt, record.UpdatedAt,
		record.PromisedDate, string(record.Status), record.Confidence,
		record.OrderValue(), linesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert golden record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, orderID string) (*domain.GoldenRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT order_id, customer_id, channel, fingerprint, raw_text, attachment_refs,
	received_at, created_at, updated_at, promised_date, status, confidence, lines
FROM golden_records
WHERE order_id = $1
`, orderID)

	var record domain.GoldenRecord
	var refsRaw, linesRaw []byte
	var status string

	err := row.Scan(
		&record.OrderID, &record.CustomerID, &record.Channel, &record.Fingerprint,
		&record.RawText, &refsRaw, &record.ReceivedAt, &record.CreatedAt,
		&record.UpdatedAt, &record.PromisedDate, &status, &record.Confidence, &linesRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get golden record", fmt.Errorf("order %s", orderID))
		}
		return nil, fmt.Errorf("scan golden record: %w", err)
	}

	if err := json.Unmarshal(refsRaw, &record.AttachmentRefs); err != nil {
		return nil, fmt.Errorf("unmarshal attachment refs: %w", err)
	}
	if err := json.Unmarshal(linesRaw, &record.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal lines: %w", err)
	}
	record.Status = domain.RecordStatus(status)

	audit, err := r.loadAudit(ctx, orderID)
	if err != nil {
		return nil, err
	}
	record.Audit = audit
	return &record, nil
}

func (r *RecordRepository) SaveAssembly(ctx context.Context, record *domain.GoldenRecord) error {
	linesJSON, err := json.Marshal(linesOrEmpty(record.Lines))
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE golden_records
SET status = $2, confidence = $3, order_value = $4, lines = $5, updated_at = $6
WHERE order_id = $1
`, record.OrderID, string(record.Status), record.Confidence, record.OrderValue(), linesJSON, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save assembly: %w", err)
	}
	return requireRowAffected(res, "save assembly", record.OrderID)
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, orderID string, status domain.RecordStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE golden_records
SET status = $2, updated_at = $3
WHERE order_id = $1
`, orderID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return requireRowAffected(res, "update record status", orderID)
}

func (r *RecordRepository) AppendAudit(ctx context.Context, orderID string, entry domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO order_audit (order_id, at, actor, action, detail)
VALUES ($1, $2, $3, $4, $5)
`, orderID, entry.At, entry.Actor, entry.Action, entry.Detail)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListReviewQueue orders pending reviews by ascending composite confidence,
// then by order value descending so high-impact orders surface first.
func (r *RecordRepository) ListReviewQueue(ctx context.Context, limit int) ([]domain.ReviewTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id, customer_id, channel, confidence, order_value, lines, received_at
FROM golden_records
WHERE status = $1
ORDER BY confidence ASC, order_value DESC, order_id ASC
LIMIT $2
`, string(domain.StatusNeedsReview), limit)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ReviewTask
	for rows.Next() {
		var task domain.ReviewTask
		var value decimal.Decimal
		var linesRaw []byte
		if err := rows.Scan(&task.OrderID, &task.CustomerID, &task.Channel,
			&task.Confidence, &value, &linesRaw, &task.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan review task: %w", err)
		}
		var lines []domain.LineItem
		if err := json.Unmarshal(linesRaw, &lines); err != nil {
			return nil, fmt.Errorf("unmarshal review task lines: %w", err)
		}
		task.OrderValue = value
		task.LineCount = len(lines)
		task.LineIndexes = domain.GoldenRecord{Lines: lines}.LinesNeedingReview()
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review queue: %w", err)
	}
	return tasks, nil
}

func (r *RecordRepository) loadAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT at, actor, action, COALESCE(detail, '')
FROM order_audit
WHERE order_id = $1
ORDER BY id ASC
`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	var audit []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(&entry.At, &entry.Actor, &entry.Action, &entry.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		audit = append(audit, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit trail: %w", err)
	}
	return audit, nil
}

func requireRowAffected(res sql.Result, operation, orderID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, operation, fmt.Errorf("order %s", orderID))
	}
	return nil
}

func refsOrEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func linesOrEmpty(lines []domain.LineItem) []domain.LineItem {
	if lines == nil {
		return []domain.LineItem{}
	}
	return lines
}

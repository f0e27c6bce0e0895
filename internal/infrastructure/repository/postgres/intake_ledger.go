package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/krittawat/order-register/internal/core/domain"
	"github.com/krittawat/order-register/internal/core/ports"
)

type IntakeLedger struct {
	db *sql.DB
}

func NewIntakeLedger(db *sql.DB) *IntakeLedger {
	return &IntakeLedger{db: db}
}

// Admit is the atomic check-and-set behind deduplication: the conflict-free
// insert either claims the key for orderID or leaves the prior claim in
// place. Two concurrent deliveries of the same message race on the primary
// key and exactly one insert wins.
func (l *IntakeLedger) Admit(ctx context.Context, key domain.DedupKey, orderID string) (ports.AdmitResult, error) {
	res, err := l.db.ExecContext(ctx, `
INSERT INTO intake_ledger (customer_id, channel, fingerprint, order_id, admitted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (customer_id, channel, fingerprint) DO NOTHING
`, key.CustomerID, key.Channel, key.Fingerprint, orderID, time.Now().UTC())
	if err != nil {
		return ports.AdmitResult{}, fmt.Errorf("insert ledger key: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ports.AdmitResult{}, fmt.Errorf("ledger rows affected: %w", err)
	}
	if affected > 0 {
		return ports.AdmitResult{Accepted: true}, nil
	}

	var existing string
	err = l.db.QueryRowContext(ctx, `
SELECT order_id FROM intake_ledger
WHERE customer_id = $1 AND channel = $2 AND fingerprint = $3
`, key.CustomerID, key.Channel, key.Fingerprint).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Ledger rows are never deleted, so a lost insert with no
			// surviving row indicates storage corruption.
			return ports.AdmitResult{}, fmt.Errorf("ledger key vanished after conflict: %s/%s", key.CustomerID, key.Channel)
		}
		return ports.AdmitResult{}, fmt.Errorf("read existing ledger key: %w", err)
	}
	return ports.AdmitResult{Accepted: false, ExistingOrderID: existing}, nil
}

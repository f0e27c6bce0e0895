package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps all order-register tables. The advisory lock
// serializes DDL across api/worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS intake_ledger (
	customer_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	order_id TEXT NOT NULL,
	admitted_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (customer_id, channel, fingerprint)
);

CREATE TABLE IF NOT EXISTS golden_records (
	order_id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	channel TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	attachment_refs JSONB NOT NULL DEFAULT '[]'::jsonb,
	received_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	promised_date TIMESTAMPTZ,
	status TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	order_value NUMERIC(18,4) NOT NULL DEFAULT 0,
	lines JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_golden_records_review
	ON golden_records(status, confidence ASC, order_value DESC);
CREATE INDEX IF NOT EXISTS idx_golden_records_created_at
	ON golden_records(created_at DESC);

CREATE TABLE IF NOT EXISTS order_audit (
	id BIGSERIAL PRIMARY KEY,
	order_id TEXT NOT NULL,
	at TIMESTAMPTZ NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_order_audit_order_id ON order_audit(order_id, id);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	orders_blocked BOOLEAN NOT NULL DEFAULT FALSE,
	block_reason TEXT
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

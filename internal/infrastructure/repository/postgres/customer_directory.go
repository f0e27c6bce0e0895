package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/krittawat/order-register/internal/core/domain"
)

type CustomerDirectory struct {
	db *sql.DB
}

func NewCustomerDirectory(db *sql.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) GetByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	row := d.db.QueryRowContext(ctx, `
SELECT id, name, orders_blocked, COALESCE(block_reason, '')
FROM customers
WHERE id = $1
`, customerID)

	var customer domain.Customer
	err := row.Scan(&customer.ID, &customer.Name, &customer.OrdersBlocked, &customer.BlockReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCustomerNotFound, "get customer", fmt.Errorf("customer %s", customerID))
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &customer, nil
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LookupOperator returns the registry entry for operatorID.
func (s *Store) LookupOperator(ctx context.Context, operatorID string) (*Operator, error) {
	var op Operator
	err := s.db.QueryRowContext(ctx, `
		SELECT operator_id, name, position, department
		FROM operators
		WHERE operator_id = ?
	`, operatorID).Scan(&op.OperatorID, &op.Name, &op.Position, &op.Department)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup operator %s: %w", operatorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup operator %s: %w", operatorID, err)
	}
	return &op, nil
}

// ProductRegistered reports whether productID is registered for the exact
// machineID. Product ids compare case-insensitively.
func (s *Store) ProductRegistered(ctx context.Context, machineID, productID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM products
		WHERE machine_id = ?
		  AND product_id = ? COLLATE NOCASE
	`, machineID, productID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup product %s/%s: %w", machineID, productID, err)
	}
	return n > 0, nil
}

// UpsertOperator inserts or replaces a registry entry.
func (s *Store) UpsertOperator(ctx context.Context, op Operator) error {
	if op.OperatorID == "" || op.Name == "" {
		return fmt.Errorf("write operator: id and name are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (operator_id, name, position, department)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(operator_id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			department = excluded.department
	`, op.OperatorID, op.Name, op.Position, op.Department)
	if err != nil {
		return fmt.Errorf("write operator %s: %w", op.OperatorID, err)
	}
	return nil
}

// UpsertProduct registers productID on machineID. Re-registering is a no-op.
func (s *Store) UpsertProduct(ctx context.Context, p Product) error {
	if p.MachineID == "" || p.ProductID == "" {
		return fmt.Errorf("write product: machine and product are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (machine_id, product_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, p.MachineID, p.ProductID)
	if err != nil {
		return fmt.Errorf("write product %s/%s: %w", p.MachineID, p.ProductID, err)
	}
	return nil
}

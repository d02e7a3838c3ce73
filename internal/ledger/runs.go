package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, machine_id, product_id, action, operator_name, created_at`

// AppendRun appends a product run row and sets run.ID.
func (s *Store) AppendRun(ctx context.Context, run *ProductRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	id, err := insertRun(ctx, s.db, run)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	run.ID = id
	return nil
}

// LatestRun returns the most recently appended run on any machine.
// Returns ErrNotFound on an empty ledger.
func (s *Store) LatestRun(ctx context.Context) (*ProductRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM product_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("read latest run: %w", err)
	}
	return run, nil
}

// LatestRunForMachine returns the most recent run for machineID.
// Returns ErrNotFound if the machine has never run a product.
func (s *Store) LatestRunForMachine(ctx context.Context, machineID string) (*ProductRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM product_runs
		WHERE machine_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, machineID)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("read latest run for %s: %w", machineID, err)
	}
	return run, nil
}

func insertRun(ctx context.Context, db execer, run *ProductRun) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO product_runs (machine_id, product_id, action, operator_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.MachineID,
		run.ProductID,
		string(run.Action),
		run.OperatorName,
		run.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanRun(row rowScanner) (*ProductRun, error) {
	var run ProductRun
	var action string
	err := row.Scan(&run.ID, &run.MachineID, &run.ProductID, &action, &run.OperatorName, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Action = RunAction(action)
	return &run, nil
}

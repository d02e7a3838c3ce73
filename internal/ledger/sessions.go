package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const sessionColumns = `id, operator_id, operator_name, status, created_at`

// AppendSession appends an operator session row and sets sess.ID.
func (s *Store) AppendSession(ctx context.Context, sess *OperatorSession) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	id, err := insertSession(ctx, s.db, sess)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	sess.ID = id
	return nil
}

// LatestSession returns the most recently appended session row across all
// operators. Returns ErrNotFound on an empty ledger.
func (s *Store) LatestSession(ctx context.Context) (*OperatorSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM operator_sessions
		ORDER BY id DESC
		LIMIT 1
	`)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("read latest session: %w", err)
	}
	return sess, nil
}

// ActiveOperator returns the most recent active session that no later ended
// row for the same operator id has closed. Returns ErrNotFound when nobody is
// checked in.
func (s *Store) ActiveOperator(ctx context.Context) (*OperatorSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM operator_sessions a
		WHERE a.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM operator_sessions e
			WHERE e.operator_id = a.operator_id
			  AND e.status = 'ended'
			  AND e.id > a.id
		  )
		ORDER BY a.id DESC
		LIMIT 1
	`)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("read active operator: %w", err)
	}
	return sess, nil
}

// RecordSessionEnd appends an ended session row and, when autoStop is not nil,
// the product stop it cascades into. Both rows commit together.
// IDs are set on success.
func (s *Store) RecordSessionEnd(ctx context.Context, end *OperatorSession, autoStop *ProductRun) error {
	if end.Status != SessionEnded {
		return fmt.Errorf("record session end: status must be %q, got %q", SessionEnded, end.Status)
	}
	if err := end.Validate(); err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	if autoStop != nil {
		if err := autoStop.Validate(); err != nil {
			return fmt.Errorf("record session end: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record session end: begin: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	if autoStop != nil {
		runID, err = insertRun(ctx, tx, autoStop)
		if err != nil {
			return fmt.Errorf("record session end: auto-stop: %w", err)
		}
	}

	sessID, err := insertSession(ctx, tx, end)
	if err != nil {
		return fmt.Errorf("record session end: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record session end: commit: %w", err)
	}

	end.ID = sessID
	if autoStop != nil {
		autoStop.ID = runID
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, sess *OperatorSession) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO operator_sessions (operator_id, operator_name, status, created_at)
		VALUES (?, ?, ?, ?)
	`,
		sess.OperatorID,
		sess.OperatorName,
		string(sess.Status),
		sess.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*OperatorSession, error) {
	var sess OperatorSession
	var status string
	err := row.Scan(&sess.ID, &sess.OperatorID, &sess.OperatorName, &status, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Status = SessionStatus(status)
	return &sess, nil
}

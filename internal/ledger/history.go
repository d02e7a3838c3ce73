package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryFilter narrows ledger listings. Zero values mean unbounded.
// MachineID does not apply to operator sessions.
type HistoryFilter struct {
	Since     time.Time
	Until     time.Time
	MachineID string
	Limit     int
}

// where builds the WHERE clause for a table. withMachine is false for tables
// without a machine_id column.
func (f HistoryFilter) where(withMachine bool) (string, []any) {
	var conds []string
	var args []any

	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}
	if withMachine && f.MachineID != "" {
		conds = append(conds, "machine_id = ?")
		args = append(args, f.MachineID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// newestFirst selects the newest Limit rows. Callers reverse the result so
// listings read oldest first.
func (f HistoryFilter) newestFirst(columns, table, where string) string {
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY id DESC", columns, table, where)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return query
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// ListSessions returns operator session rows in append order.
func (s *Store) ListSessions(ctx context.Context, f HistoryFilter) ([]OperatorSession, error) {
	where, args := f.where(false)
	rows, err := s.db.QueryContext(ctx, f.newestFirst(sessionColumns, "operator_sessions", where), args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []OperatorSession{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	reverse(sessions)
	return sessions, nil
}

// ListRuns returns product run rows in append order.
func (s *Store) ListRuns(ctx context.Context, f HistoryFilter) ([]ProductRun, error) {
	where, args := f.where(true)
	rows, err := s.db.QueryContext(ctx, f.newestFirst(runColumns, "product_runs", where), args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ProductRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	reverse(runs)
	return runs, nil
}

// ListSamples returns telemetry sample rows in append order.
func (s *Store) ListSamples(ctx context.Context, f HistoryFilter) ([]TelemetrySample, error) {
	const columns = `id, machine_id, tag_name, tag_value, created_at, COALESCE(recorded_at, '')`

	where, args := f.where(true)
	rows, err := s.db.QueryContext(ctx, f.newestFirst(columns, "telemetry_samples", where), args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []TelemetrySample{}
	for rows.Next() {
		var sample TelemetrySample
		if err := rows.Scan(&sample.ID, &sample.MachineID, &sample.TagName, &sample.TagValue, &sample.CreatedAt, &sample.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	reverse(samples)
	return samples, nil
}

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// setupTestStore opens a fresh ledger in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendSession(t *testing.T, s *Store, id, name string, status SessionStatus, at time.Time) *OperatorSession {
	t.Helper()
	sess := &OperatorSession{OperatorID: id, OperatorName: name, Status: status, CreatedAt: at}
	require.NoError(t, s.AppendSession(context.Background(), sess))
	return sess
}

func appendRun(t *testing.T, s *Store, machine, product string, action RunAction, at time.Time) *ProductRun {
	t.Helper()
	run := &ProductRun{MachineID: machine, ProductID: product, Action: action, OperatorName: "Ana", CreatedAt: at}
	require.NoError(t, s.AppendRun(context.Background(), run))
	return run
}

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file should exist")
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := setupTestStore(t)

	var version int
	require.NoError(t, s.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_UsesWAL(t *testing.T) {
	s := setupTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_PreservesRowsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s1, err := Open(path)
	require.NoError(t, err)
	appendSession(t, s1, "42", "Ana", SessionActive, baseTime)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	latest, err := s2.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", latest.OperatorID)
}

func TestOpenWait_SucceedsOnceDirectoryExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "late")
	path := filepath.Join(dir, "floor.db")

	go func() {
		time.Sleep(300 * time.Millisecond)
		os.MkdirAll(dir, 0755)
	}()

	store, err := OpenWait(context.Background(), path, 10*time.Second)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))
}

func TestOpenWait_GivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "floor.db")

	_, err := OpenWait(context.Background(), path, 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger unavailable")
}

func TestOpenWait_EmptyPathIsPermanent(t *testing.T) {
	start := time.Now()
	_, err := OpenWait(context.Background(), "", time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

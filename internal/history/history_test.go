package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

var baseTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "floor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *ledger.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.AppendSession(ctx, &ledger.OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: ledger.SessionActive, CreatedAt: baseTime}))
	require.NoError(t, store.AppendRun(ctx, &ledger.ProductRun{MachineID: "M1", ProductID: "P7", Action: ledger.RunStart, OperatorName: "Ana", CreatedAt: baseTime.Add(time.Minute)}))
	require.NoError(t, store.AppendRun(ctx, &ledger.ProductRun{MachineID: "M2", ProductID: "P9", Action: ledger.RunStart, CreatedAt: baseTime.Add(2 * time.Minute)}))
	require.NoError(t, store.InsertSamples(ctx, []ledger.TelemetrySample{
		{MachineID: "machine_01", TagName: "WISE4050:DI0", TagValue: 1, CreatedAt: baseTime, RecordedAt: "1709366400"},
		{TagName: "WISE4050:PB_EMG", TagValue: 0.5, CreatedAt: baseTime.Add(time.Second)},
	}))
}

func TestList_Tables(t *testing.T) {
	store := setupTestStore(t)
	seed(t, store)
	ctx := context.Background()

	t.Run("sessions", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, List(ctx, store, KindSessions, ledger.HistoryFilter{}, OutputFormatDefault, &buf))
		out := buf.String()
		assert.Contains(t, out, "Ana")
		assert.Contains(t, out, "2026-03-02 08:00:00")
		assert.Contains(t, out, "1 session found")
	})

	t.Run("runs filtered by machine", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, List(ctx, store, KindRuns, ledger.HistoryFilter{MachineID: "M2"}, OutputFormatDefault, &buf))
		out := buf.String()
		assert.Contains(t, out, "P9")
		assert.NotContains(t, out, "P7")
		assert.Contains(t, out, "1 run found")
	})

	t.Run("telemetry shows dashes for missing machine and device time", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, List(ctx, store, KindTelemetry, ledger.HistoryFilter{}, "", &buf))
		lines := strings.Split(buf.String(), "\n")
		require.GreaterOrEqual(t, len(lines), 4)
		assert.Contains(t, lines[2], "1709366400")
		assert.Contains(t, lines[3], "0.5")
		assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[3]), "-"))
	})
}

func TestList_Empty(t *testing.T) {
	store := setupTestStore(t)
	var buf bytes.Buffer
	require.NoError(t, List(context.Background(), store, KindRuns, ledger.HistoryFilter{}, OutputFormatDefault, &buf))
	assert.Equal(t, "No product runs found\n", buf.String())
}

func TestList_JSONL(t *testing.T) {
	store := setupTestStore(t)
	seed(t, store)

	var buf bytes.Buffer
	require.NoError(t, List(context.Background(), store, KindRuns, ledger.HistoryFilter{}, OutputFormatJSONL, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first ledger.ProductRun
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "P7", first.ProductID)
	assert.Equal(t, ledger.RunStart, first.Action)
}

func TestList_RejectsUnknownKindAndFormat(t *testing.T) {
	store := setupTestStore(t)
	var buf bytes.Buffer
	assert.Error(t, List(context.Background(), store, Kind("alarms"), ledger.HistoryFilter{}, OutputFormatDefault, &buf))
	assert.Error(t, List(context.Background(), store, KindRuns, ledger.HistoryFilter{}, OutputFormat("csv"), &buf))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 12))
	assert.Equal(t, "abcdefghi...", truncate("abcdefghijklmnop", 12))
	assert.Equal(t, "Śląskie-Ł...", truncate("Śląskie-Łódź-Plant", 12))
}

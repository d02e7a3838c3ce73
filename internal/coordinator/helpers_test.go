package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

const testSafetyTag = "WISE4050:PB_EMG"

var testClock = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// setupTestLedger opens a ledger seeded with operators 42/Ana and 7/Budi and
// product P7 on machine M1.
func setupTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.UpsertOperator(ctx, ledger.Operator{OperatorID: "42", Name: "Ana"}))
	require.NoError(t, store.UpsertOperator(ctx, ledger.Operator{OperatorID: "7", Name: "Budi"}))
	require.NoError(t, store.UpsertProduct(ctx, ledger.Product{MachineID: "M1", ProductID: "P7"}))
	require.NoError(t, store.UpsertProduct(ctx, ledger.Product{MachineID: "M1", ProductID: "P8"}))
	return store
}

// newTestValidator returns a validator over a bootstrapped cache with a
// clock that advances one second per call.
func newTestValidator(t *testing.T, store Ledger) *Validator {
	t.Helper()
	cache := NewStateCache()
	require.NoError(t, cache.Bootstrap(context.Background(), store))

	v := NewValidator(store, cache, testSafetyTag)
	tick := testClock
	v.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return v
}

func setSafetyGate(t *testing.T, store *ledger.Store, value float64) {
	t.Helper()
	require.NoError(t, store.AppendSample(context.Background(), &ledger.TelemetrySample{
		TagName:   testSafetyTag,
		TagValue:  value,
		CreatedAt: testClock,
	}))
}

// setupTestBus creates a bus client backed by miniredis.
func setupTestBus(t *testing.T) (*miniredis.Miniredis, *floorbus.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := floorbus.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func countRows(t *testing.T, store *ledger.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

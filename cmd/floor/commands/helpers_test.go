package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/RobiAdawiya/andalan-solution/internal/coordinator"
	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

const testRegistry = `version: "1.0"
operators:
  - id: "42"
    name: Ana
products:
  - machine: M1
    product: P7
`

// testFloor is a temp directory holding floor.yml and registry.yml.
type testFloor struct {
	dir        string
	configPath string
	ledgerPath string
	mr         *miniredis.Miniredis
}

func setupTestFloor(t *testing.T) *testFloor {
	t.Helper()

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	for _, env := range []string{"FLOOR_REDIS_URL", "FLOOR_LEDGER_PATH", "FLOOR_MACHINE_ID", "FLOOR_HEALTH_ADDR"} {
		t.Setenv(env, "")
	}

	mr := miniredis.RunT(t)
	dir := t.TempDir()
	f := &testFloor{
		dir:        dir,
		configPath: filepath.Join(dir, "floor.yml"),
		ledgerPath: filepath.Join(dir, "floor.db"),
		mr:         mr,
	}

	cfg := fmt.Sprintf("version: \"1.0\"\nbus:\n  redis_url: redis://%s\nledger:\n  path: %s\ncoordinator:\n  health_addr: \"off\"\n", mr.Addr(), f.ledgerPath)
	require.NoError(t, os.WriteFile(f.configPath, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.yml"), []byte(testRegistry), 0644))
	return f
}

// execute runs the floor CLI with --config pointing at the test floor.
func (f *testFloor) execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd("test", "abc123", "today")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// startCoordinator runs a coordinator engine against the test floor until the
// test ends and waits until it is subscribed.
func (f *testFloor) startCoordinator(t *testing.T) {
	t.Helper()

	store, err := ledger.Open(f.ledgerPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus, err := floorbus.NewClientFromURL("redis://" + f.mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })

	engine := coordinator.NewEngine(bus, store, coordinator.Options{
		Topics:    floorbus.DefaultTopics(),
		SafetyTag: "WISE4050:PB_EMG",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return f.mr.PubSubNumSub(floorbus.DefaultOperatorEventsTopic)[floorbus.DefaultOperatorEventsTopic] > 0
	}, 2*time.Second, 10*time.Millisecond)
}

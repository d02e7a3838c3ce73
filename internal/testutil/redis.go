//go:build integration

// Package testutil starts real infrastructure for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// RedisImage is the broker image used by integration tests.
const RedisImage = "redis:7-alpine"

// Environment is an isolated broker plus a fresh ledger file.
type Environment struct {
	T          *testing.T
	Ctx        context.Context
	Redis      testcontainers.Container
	RedisURL   string
	LedgerPath string
	Bus        *floorbus.Client
}

// SetupEnvironment starts a Redis container and creates a ledger in a temp
// directory. Everything is torn down when the test ends.
func SetupEnvironment(t *testing.T) *Environment {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())
	bus, err := floorbus.NewClientFromURL(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	require.NoError(t, bus.Ping(ctx), "Redis not reachable")

	return &Environment{
		T:          t,
		Ctx:        ctx,
		Redis:      container,
		RedisURL:   redisURL,
		LedgerPath: filepath.Join(t.TempDir(), "floor.db"),
		Bus:        bus,
	}
}

// OpenLedger opens the environment's ledger and closes it when the test ends.
func (env *Environment) OpenLedger() *ledger.Store {
	env.T.Helper()
	store, err := ledger.Open(env.LedgerPath)
	require.NoError(env.T, err)
	env.T.Cleanup(func() { store.Close() })
	return store
}

// Subscribe subscribes to topics and closes the subscription when the test ends.
func (env *Environment) Subscribe(topics ...string) *floorbus.Subscription {
	env.T.Helper()
	sub, err := env.Bus.Subscribe(env.Ctx, topics...)
	require.NoError(env.T, err)
	env.T.Cleanup(func() { sub.Close() })
	return sub
}

// WaitForSubscriber blocks until some client subscribes to topic.
func (env *Environment) WaitForSubscriber(topic string) {
	env.T.Helper()
	rdb := env.Bus
	require.Eventually(env.T, func() bool {
		n, err := rdb.NumSub(env.Ctx, topic)
		return err == nil && n > 0
	}, 5*time.Second, 20*time.Millisecond, "no subscriber on %s", topic)
}

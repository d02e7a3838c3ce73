package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(ts string) Batch {
	return Batch{DeviceTime: ts}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(4, OverflowReject)
	ctx := context.Background()

	for _, ts := range []string{"T1", "T2", "T3"} {
		require.NoError(t, q.Push(ctx, batch(ts)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"T1", "T2", "T3"} {
		b, ok := q.Pop(ctx, time.Second)
		require.True(t, ok)
		assert.Equal(t, want, b.DeviceTime)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_PopTimesOut(t *testing.T) {
	q := NewQueue(1, OverflowReject)

	start := time.Now()
	_, ok := q.Pop(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := NewQueue(1, OverflowReject)

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push(context.Background(), batch("late"))
	}()

	b, ok := q.Pop(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "late", b.DeviceTime)
}

func TestQueue_PopStopsOnCancel(t *testing.T) {
	q := NewQueue(1, OverflowReject)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx, time.Hour)
	assert.False(t, ok)
}

func TestQueue_DropOldest(t *testing.T) {
	q := NewQueue(2, OverflowDropOldest)
	ctx := context.Background()

	for _, ts := range []string{"T1", "T2", "T3", "T4"} {
		require.NoError(t, q.Push(ctx, batch(ts)))
	}

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())

	b, _ := q.Pop(ctx, time.Second)
	assert.Equal(t, "T3", b.DeviceTime)
	b, _ = q.Pop(ctx, time.Second)
	assert.Equal(t, "T4", b.DeviceTime)
}

func TestQueue_Reject(t *testing.T) {
	q := NewQueue(1, OverflowReject)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, batch("T1")))
	assert.ErrorIs(t, q.Push(ctx, batch("T2")), ErrQueueFull)
	assert.Equal(t, uint64(1), q.Rejected())

	b, _ := q.Pop(ctx, time.Second)
	assert.Equal(t, "T1", b.DeviceTime)
}

func TestQueue_BlockWaitsForSpace(t *testing.T) {
	q := NewQueue(1, OverflowBlock)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, batch("T1")))

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(ctx, batch("T2")) }()

	select {
	case <-pushed:
		t.Fatal("push should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	b, ok := q.Pop(ctx, time.Second)
	require.True(t, ok)
	assert.Equal(t, "T1", b.DeviceTime)

	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("push did not resume after pop")
	}

	b, ok = q.Pop(ctx, time.Second)
	require.True(t, ok)
	assert.Equal(t, "T2", b.DeviceTime)
}

func TestQueue_BlockHonoursCancel(t *testing.T) {
	q := NewQueue(1, OverflowBlock)
	require.NoError(t, q.Push(context.Background(), batch("T1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(ctx, batch("T2")), context.DeadlineExceeded)
}

func TestNewQueue_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewQueue(0, OverflowBlock) })
}

func TestParseOverflowPolicy(t *testing.T) {
	for in, want := range map[string]OverflowPolicy{
		"":            OverflowDropOldest,
		"block":       OverflowBlock,
		"drop_oldest": OverflowDropOldest,
		"reject":      OverflowReject,
	} {
		got, err := ParseOverflowPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseOverflowPolicy("spill")
	assert.Error(t, err)
}

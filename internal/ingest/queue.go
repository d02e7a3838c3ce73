package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// OverflowPolicy decides what Push does when the queue is full.
type OverflowPolicy string

const (
	// OverflowBlock makes Push wait for space.
	OverflowBlock OverflowPolicy = "block"
	// OverflowDropOldest evicts the oldest batch to make room.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
	// OverflowReject refuses the new batch with ErrQueueFull.
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy validates a policy name from configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(s); p {
	case OverflowBlock, OverflowDropOldest, OverflowReject:
		return p, nil
	case "":
		return OverflowDropOldest, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", s)
	}
}

// ErrQueueFull is returned by Push under OverflowReject.
var ErrQueueFull = errors.New("ingest queue full")

// Batch is one decoded telemetry message waiting to be stored.
type Batch struct {
	DeviceTime string
	Readings   []floorbus.BatchReading
	ReceivedAt time.Time
}

// Queue is a bounded FIFO hand-off between the bus receiver and the storage
// consumer. It bounds memory while storage is slow or down.
//
// Thread-safe: all methods may be called concurrently. Pop assumes a single consumer.
type Queue struct {
	mu       sync.Mutex
	items    []Batch
	capacity int
	policy   OverflowPolicy
	dropped  uint64
	rejected uint64

	notify chan struct{} // signalled on Push
	space  chan struct{} // signalled on Pop
}

// NewQueue creates a queue holding at most capacity batches.
// The capacity must be positive.
func NewQueue(capacity int, policy OverflowPolicy) *Queue {
	if capacity <= 0 {
		panic(fmt.Sprintf("ingest: queue capacity must be positive, got %d", capacity))
	}
	return &Queue{
		capacity: capacity,
		policy:   policy,
		notify:   make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
	}
}

// Push enqueues b according to the overflow policy. Only OverflowBlock waits,
// and it gives up when ctx is cancelled.
func (q *Queue) Push(ctx context.Context, b Batch) error {
	for {
		q.mu.Lock()
		if len(q.items) < q.capacity {
			q.items = append(q.items, b)
			q.mu.Unlock()
			signal(q.notify)
			return nil
		}

		switch q.policy {
		case OverflowDropOldest:
			q.items[0] = Batch{}
			q.items = append(q.items[1:], b)
			q.dropped++
			q.mu.Unlock()
			signal(q.notify)
			return nil

		case OverflowReject:
			q.rejected++
			q.mu.Unlock()
			return ErrQueueFull
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pop removes the oldest batch, waiting up to timeout for one to arrive.
// It returns false on timeout or cancellation.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Batch, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			b := q.items[0]
			q.items[0] = Batch{}
			q.items = q.items[1:]
			q.mu.Unlock()
			signal(q.space)
			return b, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-timer.C:
			return Batch{}, false
		case <-ctx.Done():
			return Batch{}, false
		}
	}
}

// Len returns the number of queued batches.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many batches OverflowDropOldest has evicted.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Rejected returns how many batches OverflowReject has refused.
func (q *Queue) Rejected() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rejected
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

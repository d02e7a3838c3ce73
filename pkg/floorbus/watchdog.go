package floorbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ConnState is the watchdog's view of broker connectivity.
type ConnState int32

const (
	StateConnected ConnState = iota
	StateDisconnected
	StateRetrying
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateRetrying:
		return "retrying"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// RetryPolicy bounds the exponential backoff used while reconnecting.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the 5 second retry cadence of the field deployment,
// backing off to at most 30 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 5 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// NewBackOff returns a fresh, never-expiring exponential backoff bounded by the policy.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// DefaultWatchdogInterval is used when NewWatchdog is given a non-positive interval.
const DefaultWatchdogInterval = 10 * time.Second

// PingFunc probes connectivity.
type PingFunc func(ctx context.Context) error

// pingTimeout caps a single connectivity probe.
const pingTimeout = 2 * time.Second

// Watchdog periodically probes the broker and repairs lost connectivity.
// It never touches coordinator state; recovery is signalled through the
// onReconnect callback.
type Watchdog struct {
	name        string
	ping        PingFunc
	interval    time.Duration
	policy      RetryPolicy
	onReconnect func()

	state atomic.Int32

	mu        sync.Mutex
	listeners []chan ConnState
}

// NewWatchdog creates a watchdog probing with ping every interval.
// onReconnect may be nil.
func NewWatchdog(name string, ping PingFunc, interval time.Duration, policy RetryPolicy, onReconnect func()) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		name:        name,
		ping:        ping,
		interval:    interval,
		policy:      policy,
		onReconnect: onReconnect,
	}
}

// State returns the current connection state.
func (w *Watchdog) State() ConnState {
	return ConnState(w.state.Load())
}

// Transitions returns a channel receiving every state change. Slow readers miss
// transitions rather than blocking the watchdog.
func (w *Watchdog) Transitions() <-chan ConnState {
	ch := make(chan ConnState, 8)
	w.mu.Lock()
	w.listeners = append(w.listeners, ch)
	w.mu.Unlock()
	return ch
}

// Run checks connectivity every interval until the context is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Check(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[%s] Watchdog check aborted: %v", w.name, err)
			}
		}
	}
}

// Check probes once. If the probe fails it blocks, retrying with backoff,
// until connectivity returns or the context is cancelled.
func (w *Watchdog) Check(ctx context.Context) error {
	err := w.probe(ctx)
	if err == nil {
		w.setState(StateConnected)
		return nil
	}
	log.Printf("[%s] Connection lost: %v", w.name, err)

	w.setState(StateDisconnected)
	w.setState(StateRetrying)

	attempt := 0
	err = backoff.RetryNotify(
		func() error {
			attempt++
			return w.probe(ctx)
		},
		backoff.WithContext(w.policy.NewBackOff(), ctx),
		func(err error, next time.Duration) {
			log.Printf("[%s] Reconnect attempt %d failed: %v (retrying in %s)", w.name, attempt, err, next.Round(time.Millisecond))
		},
	)
	if err != nil {
		return fmt.Errorf("reconnect abandoned: %w", err)
	}

	log.Printf("[%s] Connection restored after %d attempt(s)", w.name, attempt)
	w.setState(StateConnected)
	if w.onReconnect != nil {
		w.onReconnect()
	}
	return nil
}

func (w *Watchdog) probe(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return w.ping(pingCtx)
}

func (w *Watchdog) setState(s ConnState) {
	if ConnState(w.state.Swap(int32(s))) == s {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.listeners {
		select {
		case ch <- s:
		default:
		}
	}
}

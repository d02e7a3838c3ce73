package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Store is the storage handle the sink writes batches to. *ledger.Store implements it.
type Store interface {
	InsertSamples(ctx context.Context, samples []ledger.TelemetrySample) error
	Ping(ctx context.Context) error
	Close() error
}

// Opener establishes a new storage handle.
type Opener func() (Store, error)

// LedgerOpener opens the SQLite ledger at path.
func LedgerOpener(path string) Opener {
	return func() (Store, error) {
		store, err := ledger.Open(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Sink writes batches through a single lazily opened storage handle. It is
// used only by the consumer goroutine and is not safe for concurrent use.
type Sink struct {
	open      Opener
	machineID string
	policy    floorbus.RetryPolicy
	store     Store
}

// NewSink creates a sink tagging every sample with machineID.
func NewSink(open Opener, machineID string, policy floorbus.RetryPolicy) *Sink {
	return &Sink{
		open:      open,
		machineID: machineID,
		policy:    policy,
	}
}

// Write stores every reading of b in one transaction and returns how many
// samples were written. If the handle is missing or dead, Write first blocks
// reconnecting until it succeeds or ctx is cancelled. A failed insert is
// returned as-is; the batch is not retried.
func (s *Sink) Write(ctx context.Context, b Batch) (int, error) {
	samples := s.samples(b)
	if len(samples) == 0 {
		return 0, nil
	}

	if err := s.connect(ctx); err != nil {
		return 0, err
	}

	if err := s.store.InsertSamples(ctx, samples); err != nil {
		s.checkHandle(ctx)
		return 0, err
	}
	return len(samples), nil
}

// Close releases the storage handle.
func (s *Sink) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

func (s *Sink) samples(b Batch) []ledger.TelemetrySample {
	samples := make([]ledger.TelemetrySample, 0, len(b.Readings))
	for _, r := range b.Readings {
		tag := strings.TrimSpace(r.Tag)
		if tag == "" || r.Value == nil {
			continue
		}
		samples = append(samples, ledger.TelemetrySample{
			MachineID:  s.machineID,
			TagName:    tag,
			TagValue:   r.Value.Float64(),
			CreatedAt:  b.ReceivedAt,
			RecordedAt: b.DeviceTime,
		})
	}
	return samples
}

// connect ensures a live handle, retrying with backoff.
func (s *Sink) connect(ctx context.Context) error {
	if s.store != nil {
		return nil
	}

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			store, err := s.open()
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := store.Ping(pingCtx); err != nil {
				store.Close()
				return err
			}
			s.store = store
			return nil
		},
		backoff.WithContext(s.policy.NewBackOff(), ctx),
		func(err error, next time.Duration) {
			log.Printf("[Ingest] Storage connect attempt %d failed: %v (retrying in %s)", attempt, err, next.Round(time.Millisecond))
		},
	)
	if err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	if attempt > 1 {
		log.Printf("[Ingest] Storage connected after %d attempt(s)", attempt)
	}
	return nil
}

// checkHandle drops the handle if it no longer answers, so the next Write reconnects.
func (s *Sink) checkHandle(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		log.Printf("[Ingest] Storage connection lost: %v", err)
		s.store.Close()
		s.store = nil
	}
}

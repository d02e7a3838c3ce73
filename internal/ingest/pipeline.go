package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Options configures a Pipeline.
type Options struct {
	Topic            string
	PollTimeout      time.Duration
	WatchdogInterval time.Duration
	Retry            floorbus.RetryPolicy
}

// Pipeline moves telemetry batches from the bus into the ledger.
// It runs two goroutines:
//   - Receiver: decodes bus messages and hands them to the queue without touching storage
//   - Consumer: pops batches and writes each one with a single multi-row insert
//
// Delivery is at most once: a batch whose insert fails is logged and dropped.
type Pipeline struct {
	bus         *floorbus.Client
	topic       string
	queue       *Queue
	sink        *Sink
	watchdog    *floorbus.Watchdog
	pollTimeout time.Duration
	now         func() time.Time

	sub    atomic.Pointer[floorbus.Subscription]
	stored atomic.Uint64
	failed atomic.Uint64
	wg     sync.WaitGroup
}

// New creates a pipeline. The queue and sink are owned by the pipeline once started.
func New(bus *floorbus.Client, queue *Queue, sink *Sink, opts Options) *Pipeline {
	topic := opts.Topic
	if topic == "" {
		topic = floorbus.DefaultBatchTelemetryTopic
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}

	p := &Pipeline{
		bus:         bus,
		topic:       topic,
		queue:       queue,
		sink:        sink,
		pollTimeout: pollTimeout,
		now:         time.Now,
	}
	p.watchdog = floorbus.NewWatchdog("Ingest", bus.Ping, opts.WatchdogInterval, opts.Retry, p.resubscribe)
	return p
}

// Start subscribes to the telemetry topic and blocks until ctx is cancelled.
// Batches still queued at shutdown are not flushed.
func (p *Pipeline) Start(ctx context.Context) error {
	sub, err := p.bus.Subscribe(ctx, p.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", p.topic, err)
	}
	defer sub.Close()
	p.sub.Store(sub)

	log.Printf("[Ingest] Subscribed to %s", p.topic)

	go p.watchdog.Run(ctx)

	p.wg.Add(1)
	go p.consumer(ctx)

	p.receiver(ctx, sub)

	p.wg.Wait()
	if err := p.sink.Close(); err != nil {
		log.Printf("[Ingest] Failed to close storage: %v", err)
	}
	log.Printf("[Ingest] Shutdown complete (queued=%d stored=%d failed=%d dropped=%d rejected=%d)",
		p.queue.Len(), p.stored.Load(), p.failed.Load(), p.queue.Dropped(), p.queue.Rejected())
	return nil
}

func (p *Pipeline) resubscribe() {
	if sub := p.sub.Load(); sub != nil {
		log.Printf("[Ingest] Bus reconnected, resubscribing")
		sub.Reset()
	}
}

func (p *Pipeline) receiver(ctx context.Context, sub *floorbus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := p.Receive(ctx, msg.Payload); err != nil && ctx.Err() == nil {
				log.Printf("[Ingest] %v", err)
			}
		}
	}
}

// Receive decodes a batch message and queues it. It never touches storage.
func (p *Pipeline) Receive(ctx context.Context, payload []byte) error {
	batch, err := floorbus.DecodeTelemetryBatch(payload)
	if err != nil {
		logEvent("malformed_payload", map[string]interface{}{
			"topic": p.topic,
			"bytes": len(payload),
			"error": err.Error(),
			"level": "warn",
		})
		return nil
	}
	readings := make([]floorbus.BatchReading, 0, len(batch.Readings))
	for _, r := range batch.Readings {
		if r.Value != nil {
			readings = append(readings, r)
		}
	}
	if skipped := len(batch.Readings) - len(readings); skipped > 0 {
		logEvent("null_readings_skipped", map[string]interface{}{
			"device_time": string(batch.Timestamp),
			"skipped":     skipped,
			"level":       "warn",
		})
	}
	if len(readings) == 0 {
		return nil
	}

	err = p.queue.Push(ctx, Batch{
		DeviceTime: string(batch.Timestamp),
		Readings:   readings,
		ReceivedAt: p.now().UTC(),
	})
	if errors.Is(err, ErrQueueFull) {
		logEvent("batch_rejected", map[string]interface{}{
			"device_time": string(batch.Timestamp),
			"readings":    len(readings),
			"rejected":    p.queue.Rejected(),
			"level":       "warn",
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue batch: %w", err)
	}
	return nil
}

func (p *Pipeline) consumer(ctx context.Context) {
	defer p.wg.Done()

	for {
		b, ok := p.queue.Pop(ctx, p.pollTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		p.persist(ctx, b)
	}
}

// persist writes one batch. Failures are logged and the batch is discarded.
func (p *Pipeline) persist(ctx context.Context, b Batch) {
	batchID := uuid.New().String()
	start := time.Now()

	n, err := p.sink.Write(ctx, b)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failed.Add(1)
		logEvent("batch_dropped", map[string]interface{}{
			"batch_id":    batchID,
			"device_time": b.DeviceTime,
			"readings":    len(b.Readings),
			"error":       err.Error(),
			"level":       "error",
		})
		return
	}

	p.stored.Add(1)
	logEvent("batch_stored", map[string]interface{}{
		"batch_id":    batchID,
		"device_time": b.DeviceTime,
		"samples":     n,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// Stored returns how many batches were written.
func (p *Pipeline) Stored() uint64 {
	return p.stored.Load()
}

// Failed returns how many batches were dropped after a storage error.
func (p *Pipeline) Failed() uint64 {
	return p.failed.Load()
}

// logEvent logs a structured event in JSON format.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}
	data["component"] = "ingest"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Ingest] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}

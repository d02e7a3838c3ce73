package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Options configures an Engine.
type Options struct {
	Topics           floorbus.Topics
	SafetyTag        string
	HealthAddr       string // empty disables the health server
	WatchdogInterval time.Duration
	Retry            floorbus.RetryPolicy
}

// Engine is the coordinator process: it subscribes to the domain topics,
// validates each event and publishes feedback and commands.
type Engine struct {
	bus       *floorbus.Client
	ledger    Ledger
	topics    floorbus.Topics
	cache     *StateCache
	validator *Validator
	emitter   *Emitter
	watchdog  *floorbus.Watchdog
	health    *HealthServer

	sub atomic.Pointer[floorbus.Subscription]
}

// NewEngine creates a coordinator engine. The state cache is loaded in Run.
func NewEngine(bus *floorbus.Client, store Ledger, opts Options) *Engine {
	cache := NewStateCache()
	e := &Engine{
		bus:       bus,
		ledger:    store,
		topics:    opts.Topics.WithDefaults(),
		cache:     cache,
		validator: NewValidator(store, cache, opts.SafetyTag),
		emitter:   NewEmitter(bus),
	}

	e.watchdog = floorbus.NewWatchdog("Bus", bus.Ping, opts.WatchdogInterval, opts.Retry, e.resubscribe)

	if opts.HealthAddr != "" {
		e.health = NewHealthServer(opts.HealthAddr, bus, store, e.watchdog, cache)
	}
	return e
}

// State returns the engine's state cache.
func (e *Engine) State() *StateCache {
	return e.cache
}

// Run bootstraps the state cache and processes events until the context is
// cancelled. A bootstrap failure is returned immediately and is fatal.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.cache.Bootstrap(ctx, e.ledger); err != nil {
		return fmt.Errorf("failed to bootstrap state cache: %w", err)
	}
	snap := e.cache.Get()
	e.logEvent("state_bootstrapped", map[string]interface{}{
		"session_active": snap.SessionActive(),
		"run_started":    snap.RunStarted(),
	})

	if e.health != nil {
		if err := e.health.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer e.health.Shutdown(context.Background())
	}

	topics := e.topics.CoordinatorTopics()
	sub, err := e.bus.Subscribe(ctx, topics...)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}
	defer sub.Close()
	e.sub.Store(sub)

	log.Printf("[Coordinator] Subscribed to %v", topics)

	go e.watchdog.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Coordinator] Shutting down...")
			return nil

		case msg, ok := <-sub.Messages():
			if !ok {
				log.Printf("[Coordinator] Subscription closed")
				return nil
			}
			e.Dispatch(ctx, msg)
		}
	}
}

// resubscribe is the watchdog's reconnect callback.
func (e *Engine) resubscribe() {
	if sub := e.sub.Load(); sub != nil {
		log.Printf("[Coordinator] Bus reconnected, resubscribing")
		sub.Reset()
	}
}

// Dispatch routes one bus message to its handler. Malformed payloads are
// logged and dropped without feedback.
func (e *Engine) Dispatch(ctx context.Context, msg floorbus.Message) {
	eventID := uuid.New().String()

	switch msg.Topic {
	case e.topics.OperatorEvents:
		ev, err := floorbus.DecodeOperatorEvent(msg.Payload)
		if err != nil {
			e.logDropped(eventID, msg, err)
			return
		}
		e.HandleOperator(ctx, eventID, *ev)

	case e.topics.ProductEvents:
		ev, err := floorbus.DecodeProductEvent(msg.Payload)
		if err != nil {
			e.logDropped(eventID, msg, err)
			return
		}
		e.HandleProduct(ctx, eventID, *ev)

	case e.topics.RawTagTelemetry:
		reading, err := floorbus.DecodeTagReading(msg.Payload)
		if err != nil {
			e.logDropped(eventID, msg, err)
			return
		}
		if !reading.Complete() {
			e.logDropped(eventID, msg, fmt.Errorf("tagName and tagValue are required"))
			return
		}
		if err := e.validator.RecordTag(ctx, *reading); err != nil {
			log.Printf("[Coordinator] Failed to record tag %s: %v", reading.TagName, err)
			return
		}
		e.logEvent("tag_recorded", map[string]interface{}{
			"event_id":  eventID,
			"tag_name":  reading.TagName,
			"tag_value": reading.TagValue.Float64(),
		})

	default:
		e.logEvent("unexpected_topic", map[string]interface{}{
			"event_id": eventID,
			"topic":    msg.Topic,
			"level":    "warn",
		})
	}
}

// HandleOperator validates an operator event and publishes its commands and
// feedback. Must not be called concurrently with Run's dispatch loop.
func (e *Engine) HandleOperator(ctx context.Context, eventID string, ev floorbus.OperatorEvent) (OperatorOutcome, bool) {
	out, err := e.validator.HandleOperator(ctx, ev)
	if err != nil {
		log.Printf("[Coordinator] Operator event %s failed: %v", eventID, err)
		e.logEvent("handler_error", map[string]interface{}{
			"event_id":    eventID,
			"operator_id": ev.OperatorID,
			"error":       err.Error(),
			"level":       "error",
		})
		return OperatorOutcome{}, false
	}

	data := map[string]interface{}{
		"event_id":    eventID,
		"operator_id": ev.OperatorID,
		"attempted":   string(out.Attempted),
		"accepted":    out.Accepted,
	}
	if out.Reason != "" {
		data["reason"] = out.Reason
	}
	if out.Cascade != "" {
		data["cascade"] = out.Cascade
		data["machine_id"] = out.AutoStop.MachineID
		data["product_id"] = out.AutoStop.ProductID
	}
	e.logEvent("operator_decision", data)

	if err := e.emitter.Emit(ctx, OperatorMessages(e.topics, ev, out)); err != nil {
		log.Printf("[Coordinator] Failed to publish operator response %s: %v", eventID, err)
	}
	return out, true
}

// HandleProduct validates a product event and publishes its command and
// feedback. Must not be called concurrently with Run's dispatch loop.
func (e *Engine) HandleProduct(ctx context.Context, eventID string, ev floorbus.ProductEvent) (ProductOutcome, bool) {
	out, err := e.validator.HandleProduct(ctx, ev)
	if err != nil {
		log.Printf("[Coordinator] Product event %s failed: %v", eventID, err)
		e.logEvent("handler_error", map[string]interface{}{
			"event_id":   eventID,
			"machine_id": ev.MachineID,
			"product_id": ev.ProductID,
			"error":      err.Error(),
			"level":      "error",
		})
		return ProductOutcome{}, false
	}

	e.logEvent("product_decision", map[string]interface{}{
		"event_id":   eventID,
		"machine_id": ev.MachineID,
		"product_id": ev.ProductID,
		"accepted":   out.Accepted,
		"action":     string(out.Action),
		"message":    out.Message,
	})

	if err := e.emitter.Emit(ctx, ProductMessages(e.topics, e.cache.Get(), out)); err != nil {
		log.Printf("[Coordinator] Failed to publish product response %s: %v", eventID, err)
	}
	return out, true
}

// logDropped records a payload dropped without feedback. Undecodable payloads
// are logged as malformed_payload, decodable ones missing data as incomplete_payload.
func (e *Engine) logDropped(eventID string, msg floorbus.Message, err error) {
	eventType := "incomplete_payload"
	if floorbus.IsMalformed(err) {
		eventType = "malformed_payload"
	}
	e.logEvent(eventType, map[string]interface{}{
		"event_id": eventID,
		"topic":    msg.Topic,
		"bytes":    len(msg.Payload),
		"error":    err.Error(),
		"level":    "warn",
	})
}

// logEvent logs a structured event in JSON format.
// Level defaults to info unless data carries one.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}
	data["component"] = "coordinator"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Coordinator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}

package floorbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides publish/subscribe access to the floor bus.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a bus client from Redis connection options.
// No connection is made until the first command.
func NewClient(redisOpts *redis.Options) (*Client, error) {
	if redisOpts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}

	return &Client{
		rdb: redis.NewClient(redisOpts),
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a bus client.
func NewClientFromURL(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewClient(opts)
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies broker connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Publish marshals v as JSON and publishes it on topic.
func (c *Client) Publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", topic, err)
	}
	return c.PublishRaw(ctx, topic, payload)
}

// PublishRaw publishes payload on topic as-is.
func (c *Client) PublishRaw(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if err := c.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// NumSub returns how many clients are subscribed to topic.
func (c *Client) NumSub(ctx context.Context, topic string) (int64, error) {
	counts, err := c.rdb.PubSubNumSub(ctx, topic).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers of %s: %w", topic, err)
	}
	return counts[topic], nil
}

// Message is a raw bus message.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription represents an active subscription to one or more topics.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	messages chan Message
	reset    chan struct{}
	cancel   func()
	once     sync.Once
}

// Messages returns the channel of received messages, in arrival order.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Messages() <-chan Message {
	return s.messages
}

// Reset drops the current Redis subscription and subscribes again on a fresh
// connection. Messages published while resubscribing are lost.
func (s *Subscription) Reset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to the given topics and returns once the broker has
// confirmed the subscription, so messages published afterwards are delivered.
// Context cancellation also stops the subscription.
//
// Messages are delivered on a buffered channel (size 64). A single goroutine
// feeds the channel, so consumers see messages from all topics in one order.
func (c *Client) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}

	subCtx, cancelFunc := context.WithCancel(ctx)

	pubsub := c.rdb.Subscribe(subCtx, topics...)
	if _, err := pubsub.Receive(subCtx); err != nil {
		pubsub.Close()
		cancelFunc()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}

	sub := &Subscription{
		messages: make(chan Message, 64),
		reset:    make(chan struct{}, 1),
		cancel:   cancelFunc,
	}

	go sub.run(subCtx, c.rdb, topics, pubsub)

	return sub, nil
}

// run pumps messages until the context is cancelled, resubscribing whenever
// Reset is called.
func (s *Subscription) run(ctx context.Context, rdb *redis.Client, topics []string, pubsub *redis.PubSub) {
	defer close(s.messages)

	for {
		resubscribe := s.pump(ctx, pubsub.Channel())
		pubsub.Close()
		if !resubscribe {
			return
		}
		pubsub = rdb.Subscribe(ctx, topics...)
	}
}

// pump forwards messages from ch. It returns true when a reset was requested.
func (s *Subscription) pump(ctx context.Context, ch <-chan *redis.Message) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case <-s.reset:
			return true

		case msg, ok := <-ch:
			if !ok {
				return false
			}

			select {
			case s.messages <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}:
			case <-ctx.Done():
				return false
			}
		}
	}
}

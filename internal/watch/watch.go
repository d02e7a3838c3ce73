package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// ErrTimeout is returned when no matching message arrives in time.
var ErrTimeout = errors.New("timed out waiting for message")

// WaitFor reads from sub until match returns true for a message, the timeout
// elapses or the context is cancelled. Non-matching messages are passed to
// seen when it is non-nil.
func WaitFor(ctx context.Context, sub *floorbus.Subscription, timeout time.Duration, match func(floorbus.Message) bool, seen func(floorbus.Message)) (floorbus.Message, error) {
	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return floorbus.Message{}, ctx.Err()

		case <-timeoutCh:
			return floorbus.Message{}, fmt.Errorf("%w after %v", ErrTimeout, timeout)

		case msg, ok := <-sub.Messages():
			if !ok {
				return floorbus.Message{}, fmt.Errorf("subscription closed")
			}
			if match(msg) {
				return msg, nil
			}
			if seen != nil {
				seen(msg)
			}
		}
	}
}

// OperatorVerdict waits for feedback on feedbackTopic echoing operatorID. Any
// commands seen on commandTopic beforehand are collected.
func OperatorVerdict(ctx context.Context, sub *floorbus.Subscription, feedbackTopic, commandTopic, operatorID string, timeout time.Duration) (*floorbus.OperatorFeedback, []floorbus.Command, error) {
	var commands []floorbus.Command
	var fb *floorbus.OperatorFeedback

	_, err := WaitFor(ctx, sub, timeout, func(msg floorbus.Message) bool {
		if msg.Topic != feedbackTopic {
			return false
		}
		decoded, err := floorbus.DecodeOperatorFeedback(msg.Payload)
		if err != nil || decoded.OperatorID != operatorID {
			return false
		}
		fb = decoded
		return true
	}, collectCommands(commandTopic, &commands))
	if err != nil {
		return nil, commands, err
	}
	return fb, commands, nil
}

// ProductVerdict waits for the next product feedback. Product feedback carries
// the coordinator's cached run rather than the request, so the first message
// on feedbackTopic is taken.
func ProductVerdict(ctx context.Context, sub *floorbus.Subscription, feedbackTopic, commandTopic string, timeout time.Duration) (*floorbus.ProductFeedback, []floorbus.Command, error) {
	var commands []floorbus.Command
	var fb *floorbus.ProductFeedback

	_, err := WaitFor(ctx, sub, timeout, func(msg floorbus.Message) bool {
		if msg.Topic != feedbackTopic {
			return false
		}
		decoded, err := floorbus.DecodeProductFeedback(msg.Payload)
		if err != nil {
			return false
		}
		fb = decoded
		return true
	}, collectCommands(commandTopic, &commands))
	if err != nil {
		return nil, commands, err
	}
	return fb, commands, nil
}

func collectCommands(topic string, into *[]floorbus.Command) func(floorbus.Message) {
	return func(msg floorbus.Message) {
		if msg.Topic != topic {
			return
		}
		if cmd, err := floorbus.DecodeCommand(msg.Payload); err == nil {
			*into = append(*into, *cmd)
		}
	}
}

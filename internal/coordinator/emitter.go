package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Operator feedback messages, selected by attempted action and result.
const (
	MsgStartSuccess = "start success"
	MsgStartFailed  = "start failed"
	MsgEndSuccess   = "end success"
	MsgEndFailed    = "end failed"
	MsgUnknown      = "unknown"
)

// Envelope is one outbound bus message.
type Envelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// operatorMessage maps (attempted action, result) to the fixed feedback text.
func operatorMessage(attempted Action, success bool) string {
	switch attempted {
	case ActionStart:
		if success {
			return MsgStartSuccess
		}
		return MsgStartFailed
	case ActionEnd:
		if success {
			return MsgEndSuccess
		}
		return MsgEndFailed
	default:
		return MsgUnknown
	}
}

// OperatorMessages builds the messages answering an operator event: actuator
// commands first, then feedback. The feedback echoes the request identity.
func OperatorMessages(topics floorbus.Topics, ev floorbus.OperatorEvent, out OperatorOutcome) []Envelope {
	var envs []Envelope

	if out.Accepted {
		envs = append(envs, Envelope{
			Topic:   topics.MachineCommands,
			Payload: floorbus.SetTag(floorbus.TagManPowerValidation, out.Attempted == ActionStart),
		})
		if out.Cascade == CascadeAutoStop {
			envs = append(envs, Envelope{
				Topic:   topics.MachineCommands,
				Payload: floorbus.SetTag(floorbus.TagProductValidation, false),
			})
		}
	}

	envs = append(envs, Envelope{
		Topic: topics.OperatorFeedback,
		Payload: floorbus.OperatorFeedback{
			OperatorID:   ev.OperatorID,
			OperatorName: ev.OperatorName,
			Success:      out.Accepted,
			Message:      operatorMessage(out.Attempted, out.Accepted),
		},
	})
	return envs
}

// ProductMessages builds the messages answering a product event. The feedback
// reports the machine and product of the cached latest run, which may differ
// from the request when several machines scan at once.
func ProductMessages(topics floorbus.Topics, snap Snapshot, out ProductOutcome) []Envelope {
	var envs []Envelope

	if out.Accepted {
		envs = append(envs, Envelope{
			Topic:   topics.MachineCommands,
			Payload: floorbus.SetTag(floorbus.TagProductValidation, out.Action == ActionStart),
		})
	}

	fb := floorbus.ProductFeedback{
		Success: out.Accepted,
		Message: out.Message,
	}
	if snap.Run != nil {
		fb.MachineID = snap.Run.MachineID
		fb.ProductID = snap.Run.ProductID
	}
	envs = append(envs, Envelope{Topic: topics.ProductFeedback, Payload: fb})
	return envs
}

// Emitter publishes envelopes on the bus.
type Emitter struct {
	pub Publisher
}

// NewEmitter creates an emitter publishing through pub.
func NewEmitter(pub Publisher) *Emitter {
	return &Emitter{pub: pub}
}

// Emit publishes envelopes in order. A failed publish does not stop the
// remaining ones; all failures are returned joined.
func (e *Emitter) Emit(ctx context.Context, envs []Envelope) error {
	var errs []error
	for _, env := range envs {
		if err := e.pub.Publish(ctx, env.Topic, env.Payload); err != nil {
			errs = append(errs, fmt.Errorf("emit %s: %w", env.Topic, err))
		}
	}
	return errors.Join(errs...)
}

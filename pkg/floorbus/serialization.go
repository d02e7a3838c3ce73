package floorbus

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload marks a message that could not be decoded. Such messages
// cannot be attributed to a request and are dropped without feedback.
var ErrMalformedPayload = errors.New("malformed payload")

// IsMalformed reports whether err came from a payload decoder.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}

// DecodeOperatorEvent decodes an operator check-in/out request.
// Missing fields are not a decoding error; the coordinator rejects them with feedback.
func DecodeOperatorEvent(data []byte) (*OperatorEvent, error) {
	var ev OperatorEvent
	if err := decode(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeProductEvent decodes a product scan.
func DecodeProductEvent(data []byte) (*ProductEvent, error) {
	var ev ProductEvent
	if err := decode(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeTagReading decodes a raw tag sample.
func DecodeTagReading(data []byte) (*TagReading, error) {
	var r TagReading
	if err := decode(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeTelemetryBatch decodes a batched telemetry message.
func DecodeTelemetryBatch(data []byte) (*TelemetryBatch, error) {
	var b TelemetryBatch
	if err := decode(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DecodeOperatorFeedback decodes feedback published for an operator event.
func DecodeOperatorFeedback(data []byte) (*OperatorFeedback, error) {
	var fb OperatorFeedback
	if err := decode(data, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// DecodeProductFeedback decodes feedback published for a product event.
func DecodeProductFeedback(data []byte) (*ProductFeedback, error) {
	var fb ProductFeedback
	if err := decode(data, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

// DecodeCommand decodes an actuator command.
func DecodeCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := decode(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

package floorbus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Actuator tags written on the machine command topic.
const (
	TagManPowerValidation = "ManPower_Validation"
	TagProductValidation  = "Product_Validation"
)

// OperatorEvent is a badge scan requesting an operator check-in or check-out.
// The coordinator decides which of the two it is.
type OperatorEvent struct {
	OperatorID   string `json:"operatorId"`
	OperatorName string `json:"operatorName"`
}

// UnmarshalJSON accepts ids and names sent as JSON strings or numbers.
// Scanners configured for numeric badges send the id unquoted.
func (e *OperatorEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		OperatorID   json.RawMessage `json:"operatorId"`
		OperatorName json.RawMessage `json:"operatorName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := scalarString("operatorId", raw.OperatorID)
	if err != nil {
		return err
	}
	name, err := scalarString("operatorName", raw.OperatorName)
	if err != nil {
		return err
	}
	*e = OperatorEvent{OperatorID: id, OperatorName: name}
	return nil
}

// ProductEvent is a product scan on a machine. The coordinator toggles the
// machine's product run between start and stop.
type ProductEvent struct {
	MachineID string `json:"machineId"`
	ProductID string `json:"productId"`
}

// UnmarshalJSON accepts machine and product ids sent as JSON strings or numbers.
func (e *ProductEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		MachineID json.RawMessage `json:"machineId"`
		ProductID json.RawMessage `json:"productId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	machine, err := scalarString("machineId", raw.MachineID)
	if err != nil {
		return err
	}
	product, err := scalarString("productId", raw.ProductID)
	if err != nil {
		return err
	}
	*e = ProductEvent{MachineID: machine, ProductID: product}
	return nil
}

// scalarString decodes a JSON string or number into its text form. An absent
// or null field yields "" so the coordinator can reject it with feedback.
func scalarString(field string, data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", fmt.Errorf("%s: %w", field, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("%s must be a string or number, got %s", field, string(data))
	}
	return n.String(), nil
}

// TagReading is a single raw tag sample published outside of a telemetry batch.
// TagValue is nil when the field was absent from the payload.
type TagReading struct {
	TagName  string    `json:"tagName"`
	TagValue *TagValue `json:"tagValue"`
}

// Complete reports whether both the tag name and value were present.
func (r *TagReading) Complete() bool {
	return strings.TrimSpace(r.TagName) != "" && r.TagValue != nil
}

// TelemetryBatch is one device scan of many tags sharing a device timestamp.
type TelemetryBatch struct {
	Timestamp DeviceTime     `json:"ts"`
	Readings  []BatchReading `json:"readings"`
}

// BatchReading is one tag inside a TelemetryBatch. Value is nil when the
// device reported null or omitted it.
type BatchReading struct {
	Tag   string    `json:"tag"`
	Value *TagValue `json:"value"`
}

// OperatorFeedback answers an OperatorEvent.
type OperatorFeedback struct {
	OperatorID   string `json:"operatorId"`
	OperatorName string `json:"operatorName"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
}

// ProductFeedback answers a ProductEvent. MachineID and ProductID reflect the
// coordinator's most recent product run, not the request.
type ProductFeedback struct {
	MachineID string `json:"machineId"`
	ProductID string `json:"productId"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// Command instructs machine-side logic to set tags.
type Command struct {
	Writes []TagWrite `json:"writes"`
}

// TagWrite sets a single binary actuator tag.
type TagWrite struct {
	Tag   string `json:"tag"`
	Value int    `json:"value"`
}

// Validate checks that every write names a tag and carries a binary value.
func (c *Command) Validate() error {
	if len(c.Writes) == 0 {
		return fmt.Errorf("command has no writes")
	}
	for i, w := range c.Writes {
		if w.Tag == "" {
			return fmt.Errorf("write %d: tag is required", i)
		}
		if w.Value != 0 && w.Value != 1 {
			return fmt.Errorf("write %d: value must be 0 or 1, got %d", i, w.Value)
		}
	}
	return nil
}

// SetTag builds a single-write command.
func SetTag(tag string, on bool) Command {
	value := 0
	if on {
		value = 1
	}
	return Command{Writes: []TagWrite{{Tag: tag, Value: value}}}
}

// TagValue is a numeric tag value. I/O modules report digital inputs as
// booleans or numeric strings; both are coerced to float64 (true → 1).
type TagValue float64

// Float64 returns the value as a float64.
func (v TagValue) Float64() float64 {
	return float64(v)
}

// NewTagValue returns a pointer to f as a TagValue.
func NewTagValue(f float64) *TagValue {
	v := TagValue(f)
	return &v
}

// UnmarshalJSON accepts JSON numbers, booleans and numeric strings.
func (v *TagValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*v = 1
		return nil
	case bytes.Equal(data, []byte("false")):
		*v = 0
		return nil
	case bytes.Equal(data, []byte("null")):
		return fmt.Errorf("tag value is null")
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("tag value %q is not numeric", s)
		}
		*v = TagValue(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid tag value %s: %w", string(data), err)
	}
	*v = TagValue(f)
	return nil
}

// DeviceTime is the timestamp a device stamped on a telemetry batch. It is kept
// verbatim; devices send either a string or an epoch number.
type DeviceTime string

// UnmarshalJSON accepts a JSON string or number.
func (t *DeviceTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = DeviceTime(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid device timestamp %s: %w", string(data), err)
	}
	*t = DeviceTime(n.String())
	return nil
}

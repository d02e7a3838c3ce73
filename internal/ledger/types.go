package ledger

import (
	"fmt"
	"time"
)

// SessionStatus is the state recorded by an operator session row.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// RunAction is the action recorded by a product run row.
type RunAction string

const (
	RunStart RunAction = "start"
	RunStop  RunAction = "stop"
)

// OperatorSession is one immutable check-in or check-out row.
type OperatorSession struct {
	ID           int64         `json:"id"`
	OperatorID   string        `json:"operator_id"`
	OperatorName string        `json:"operator_name"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Validate checks required fields before insert.
func (s *OperatorSession) Validate() error {
	if s.OperatorID == "" {
		return fmt.Errorf("operator_id is required")
	}
	if s.OperatorName == "" {
		return fmt.Errorf("operator_name is required")
	}
	if s.Status != SessionActive && s.Status != SessionEnded {
		return fmt.Errorf("invalid session status: %q", s.Status)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// ProductRun is one immutable start or stop row for a machine.
type ProductRun struct {
	ID           int64     `json:"id"`
	MachineID    string    `json:"machine_id"`
	ProductID    string    `json:"product_id"`
	Action       RunAction `json:"action"`
	OperatorName string    `json:"operator_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks required fields before insert.
func (r *ProductRun) Validate() error {
	if r.MachineID == "" {
		return fmt.Errorf("machine_id is required")
	}
	if r.ProductID == "" {
		return fmt.Errorf("product_id is required")
	}
	if r.Action != RunStart && r.Action != RunStop {
		return fmt.Errorf("invalid run action: %q", r.Action)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// TelemetrySample is one tag value. RecordedAt is the device timestamp as sent
// by the device and is empty for samples that carried none.
type TelemetrySample struct {
	ID         int64     `json:"id"`
	MachineID  string    `json:"machine_id"`
	TagName    string    `json:"tag_name"`
	TagValue   float64   `json:"tag_value"`
	CreatedAt  time.Time `json:"created_at"`
	RecordedAt string    `json:"recorded_at,omitempty"`
}

// Operator is a master registry entry.
type Operator struct {
	OperatorID string `json:"operator_id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Position   string `json:"position,omitempty" yaml:"position,omitempty"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
}

// Product is a master registry entry binding a product to a machine.
type Product struct {
	MachineID string `json:"machine_id" yaml:"machine"`
	ProductID string `json:"product_id" yaml:"product"`
}

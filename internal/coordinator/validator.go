package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Action is the check-in/out or product run action a decision resolves to.
type Action string

const (
	ActionStart Action = "start"
	ActionEnd   Action = "end"
	ActionStop  Action = "stop"
)

// CascadeAutoStop marks a session end that also stopped the running product.
const CascadeAutoStop = "auto-stop"

// Rejection reasons. Operator reasons are logged only; product reasons are
// sent back as the feedback message.
const (
	ReasonIncompleteData     = "incomplete data"
	ReasonUnknownOperator    = "operator not registered"
	ReasonNameMismatch       = "operator name does not match registry"
	ReasonSafetyGateOpen     = "safety gate not engaged"
	ReasonNotSessionHolder   = "operator does not hold the active session"
	ReasonProductUnknown     = "product not registered for machine"
	ReasonNoOperatorActive   = "no operator active"
	productAcceptedMsgFormat = "product valid, action: %s, operator: %s"
)

// OperatorOutcome is the decision for an operator event. Attempted is always
// set, even on rejection, so feedback can say what the scan would have done.
type OperatorOutcome struct {
	Accepted  bool
	Attempted Action
	Cascade   string
	Reason    string

	Session  *ledger.OperatorSession
	AutoStop *ledger.ProductRun
}

// ProductOutcome is the decision for a product event.
type ProductOutcome struct {
	Accepted     bool
	Action       Action
	OperatorName string
	Message      string

	Run *ledger.ProductRun
}

// Validator applies the check-in/out and product run rules. It is not safe for
// concurrent use; the Engine calls it from one goroutine.
type Validator struct {
	ledger    Ledger
	cache     *StateCache
	safetyTag string
	now       func() time.Time
}

// NewValidator creates a validator reading the safety gate from safetyTag.
func NewValidator(l Ledger, cache *StateCache, safetyTag string) *Validator {
	return &Validator{
		ledger:    l,
		cache:     cache,
		safetyTag: safetyTag,
		now:       time.Now,
	}
}

// HandleOperator decides an operator check-in or check-out and appends the
// resulting ledger rows. A returned error is an infrastructure failure; the
// outcome is then meaningless and nothing should be published.
func (v *Validator) HandleOperator(ctx context.Context, ev floorbus.OperatorEvent) (OperatorOutcome, error) {
	snap := v.cache.Get()

	attempted := ActionStart
	if snap.SessionActive() {
		attempted = ActionEnd
	}
	reject := func(reason string) (OperatorOutcome, error) {
		return OperatorOutcome{Attempted: attempted, Reason: reason}, nil
	}

	id := strings.TrimSpace(ev.OperatorID)
	name := strings.TrimSpace(ev.OperatorName)
	if id == "" || name == "" {
		return reject(ReasonIncompleteData)
	}

	op, err := v.ledger.LookupOperator(ctx, id)
	if ledger.IsNotFound(err) {
		return reject(ReasonUnknownOperator)
	}
	if err != nil {
		return OperatorOutcome{}, err
	}
	if !namesMatch(op.Name, name) {
		return reject(ReasonNameMismatch)
	}

	now := v.now().UTC()

	if attempted == ActionStart {
		sess := &ledger.OperatorSession{
			OperatorID:   id,
			OperatorName: name,
			Status:       ledger.SessionActive,
			CreatedAt:    now,
		}
		if err := v.ledger.AppendSession(ctx, sess); err != nil {
			return OperatorOutcome{}, err
		}
		v.cache.SetSession(sess)
		return OperatorOutcome{Accepted: true, Attempted: ActionStart, Session: sess}, nil
	}

	gate, err := v.SafetyGate(ctx)
	if err != nil {
		return OperatorOutcome{}, err
	}
	if gate != 1 {
		return reject(ReasonSafetyGateOpen)
	}
	if snap.Session.OperatorID != id {
		return reject(ReasonNotSessionHolder)
	}

	var autoStop *ledger.ProductRun
	if snap.RunStarted() {
		autoStop = &ledger.ProductRun{
			MachineID:    snap.Run.MachineID,
			ProductID:    snap.Run.ProductID,
			Action:       ledger.RunStop,
			OperatorName: snap.Run.OperatorName,
			CreatedAt:    now,
		}
	}
	end := &ledger.OperatorSession{
		OperatorID:   id,
		OperatorName: name,
		Status:       ledger.SessionEnded,
		CreatedAt:    now,
	}
	if err := v.ledger.RecordSessionEnd(ctx, end, autoStop); err != nil {
		return OperatorOutcome{}, err
	}

	out := OperatorOutcome{Accepted: true, Attempted: ActionEnd, Session: end}
	if autoStop != nil {
		v.cache.SetRun(autoStop)
		out.Cascade = CascadeAutoStop
		out.AutoStop = autoStop
	}
	v.cache.SetSession(end)
	return out, nil
}

// HandleProduct decides a product scan: it toggles the machine's run between
// start and stop on behalf of the active operator.
func (v *Validator) HandleProduct(ctx context.Context, ev floorbus.ProductEvent) (ProductOutcome, error) {
	machineID := strings.TrimSpace(ev.MachineID)
	productID := strings.TrimSpace(ev.ProductID)
	if machineID == "" || productID == "" {
		return ProductOutcome{Message: ReasonIncompleteData}, nil
	}

	registered, err := v.ledger.ProductRegistered(ctx, machineID, productID)
	if err != nil {
		return ProductOutcome{}, err
	}
	if !registered {
		return ProductOutcome{Message: ReasonProductUnknown}, nil
	}

	active, err := v.ledger.ActiveOperator(ctx)
	if ledger.IsNotFound(err) {
		return ProductOutcome{Message: ReasonNoOperatorActive}, nil
	}
	if err != nil {
		return ProductOutcome{}, err
	}

	action := ledger.RunStart
	last, err := v.ledger.LatestRunForMachine(ctx, machineID)
	switch {
	case ledger.IsNotFound(err):
	case err != nil:
		return ProductOutcome{}, err
	case last.Action == ledger.RunStart:
		action = ledger.RunStop
	}

	run := &ledger.ProductRun{
		MachineID:    machineID,
		ProductID:    productID,
		Action:       action,
		OperatorName: active.OperatorName,
		CreatedAt:    v.now().UTC(),
	}
	if err := v.ledger.AppendRun(ctx, run); err != nil {
		return ProductOutcome{}, err
	}
	v.cache.SetRun(run)

	return ProductOutcome{
		Accepted:     true,
		Action:       Action(action),
		OperatorName: active.OperatorName,
		Message:      fmt.Sprintf(productAcceptedMsgFormat, action, active.OperatorName),
		Run:          run,
	}, nil
}

// RecordTag persists a raw tag reading. Readings on the safety tag feed the gate.
func (v *Validator) RecordTag(ctx context.Context, r floorbus.TagReading) error {
	if !r.Complete() {
		return fmt.Errorf("incomplete tag reading")
	}
	return v.ledger.AppendSample(ctx, &ledger.TelemetrySample{
		TagName:   strings.TrimSpace(r.TagName),
		TagValue:  r.TagValue.Float64(),
		CreatedAt: v.now().UTC(),
	})
}

// SafetyGate returns the latest safety tag value, or 0 if none was ever recorded.
func (v *Validator) SafetyGate(ctx context.Context) (float64, error) {
	value, err := v.ledger.LatestTagValue(ctx, v.safetyTag)
	if ledger.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// namesMatch compares names case-insensitively after Unicode normalization.
func namesMatch(registered, given string) bool {
	fold := func(s string) string {
		return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
	}
	return fold(registered) == fold(given)
}

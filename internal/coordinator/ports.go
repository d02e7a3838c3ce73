package coordinator

import (
	"context"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

// Ledger is the subset of ledger.Store the coordinator reads and appends to.
type Ledger interface {
	LatestSession(ctx context.Context) (*ledger.OperatorSession, error)
	LatestRun(ctx context.Context) (*ledger.ProductRun, error)
	ActiveOperator(ctx context.Context) (*ledger.OperatorSession, error)
	LatestRunForMachine(ctx context.Context, machineID string) (*ledger.ProductRun, error)
	LookupOperator(ctx context.Context, operatorID string) (*ledger.Operator, error)
	ProductRegistered(ctx context.Context, machineID, productID string) (bool, error)
	LatestTagValue(ctx context.Context, tag string) (float64, error)

	AppendSession(ctx context.Context, sess *ledger.OperatorSession) error
	AppendRun(ctx context.Context, run *ledger.ProductRun) error
	RecordSessionEnd(ctx context.Context, end *ledger.OperatorSession, autoStop *ledger.ProductRun) error
	AppendSample(ctx context.Context, sample *ledger.TelemetrySample) error

	Ping(ctx context.Context) error
}

// Publisher sends JSON messages on the bus. floorbus.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// Pinger probes a dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

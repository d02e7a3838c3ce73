package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

// BootstrapSource supplies the rows the cache starts from.
type BootstrapSource interface {
	LatestSession(ctx context.Context) (*ledger.OperatorSession, error)
	LatestRun(ctx context.Context) (*ledger.ProductRun, error)
}

// Snapshot is a copy of the cache at one instant. Nil slots mean the ledger
// held no row of that kind.
type Snapshot struct {
	Session *ledger.OperatorSession
	Run     *ledger.ProductRun
}

// SessionActive reports whether the globally latest session is active.
func (s Snapshot) SessionActive() bool {
	return s.Session != nil && s.Session.Status == ledger.SessionActive
}

// RunStarted reports whether the globally latest product run is a start.
func (s Snapshot) RunStarted() bool {
	return s.Run != nil && s.Run.Action == ledger.RunStart
}

// StateCache holds the single most recent operator session and product run.
// It is written only by the validation path after the matching ledger write;
// the mutex exists for readers such as the health endpoint.
type StateCache struct {
	mu      sync.RWMutex
	session *ledger.OperatorSession
	run     *ledger.ProductRun
}

// NewStateCache returns an empty cache. Call Bootstrap before use.
func NewStateCache() *StateCache {
	return &StateCache{}
}

// Bootstrap loads the latest session and run from the ledger. An empty ledger
// is a valid baseline; any other error is returned and must stop the process.
func (c *StateCache) Bootstrap(ctx context.Context, src BootstrapSource) error {
	session, err := src.LatestSession(ctx)
	if err != nil && !ledger.IsNotFound(err) {
		return fmt.Errorf("load latest session: %w", err)
	}

	run, err := src.LatestRun(ctx)
	if err != nil && !ledger.IsNotFound(err) {
		return fmt.Errorf("load latest run: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.run = run
	return nil
}

// Get returns a copy of the current slots. It never touches storage.
func (c *StateCache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var snap Snapshot
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	if c.run != nil {
		r := *c.run
		snap.Run = &r
	}
	return snap
}

// SetSession replaces the session slot.
func (c *StateCache) SetSession(sess *ledger.OperatorSession) {
	var cp *ledger.OperatorSession
	if sess != nil {
		s := *sess
		cp = &s
	}
	c.mu.Lock()
	c.session = cp
	c.mu.Unlock()
}

// SetRun replaces the product run slot.
func (c *StateCache) SetRun(run *ledger.ProductRun) {
	var cp *ledger.ProductRun
	if run != nil {
		r := *run
		cp = &r
	}
	c.mu.Lock()
	c.run = cp
	c.mu.Unlock()
}

// Package engine holds the admission gate that bounds how many harvests
// drive the shared browser at once.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/use-agent/flowscout/models"
)

// degradedAfter is the number of consecutive failed harvests after which
// the gate reports the browser as degraded.
const degradedAfter = 3

// Gate is a counting semaphore in front of the browser. Acquire blocks
// until a slot frees or the context ends. Ordering among waiters is not
// guaranteed.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int

	active   atomic.Int32
	waiting  atomic.Int32
	failures atomic.Int32 // consecutive failed releases
}

// NewGate creates a gate admitting at most capacity concurrent holders.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire takes one slot. Every successful Acquire must be paired with
// exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	g.waiting.Add(1)
	err := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		return err
	}
	g.active.Add(1)
	return nil
}

// Outcome is how a holder's work ended. It feeds Degraded.
type Outcome int

const (
	// Succeeded resets the failure streak.
	Succeeded Outcome = iota

	// Failed extends the failure streak.
	Failed

	// Abandoned leaves the streak as it is: the work ended for a reason
	// unrelated to the browser, such as a client cancel or a bad request.
	Abandoned
)

// Release frees a slot and records the holder's outcome.
func (g *Gate) Release(o Outcome) {
	g.active.Add(-1)
	g.sem.Release(1)

	switch o {
	case Succeeded:
		g.failures.Store(0)
	case Failed:
		if n := g.failures.Add(1); n == degradedAfter {
			slog.Warn("gate: browser degraded", "consecutiveFailures", n)
		}
	}
}

// Degraded reports whether the last few harvests all failed.
func (g *Gate) Degraded() bool {
	return g.failures.Load() >= degradedAfter
}

// Stats returns a snapshot of the gate's current state.
func (g *Gate) Stats() models.GateStats {
	return models.GateStats{
		Capacity:            g.capacity,
		Active:              int(g.active.Load()),
		Waiting:             int(g.waiting.Load()),
		ConsecutiveFailures: int(g.failures.Load()),
	}
}

package deadlock

import (
	"context"
	"log/slog"
	"time"

	"github.com/absolve/reddwarf/pkg/concurrency/lock"
	"github.com/absolve/reddwarf/pkg/logging"
)

// Arbiter watches a LockManager from the outside, through the same
// GetOwners/GetWaiters/ConflictInjectable surface any other collaborator
// would use. It never reaches into the manager's internal shards.
type Arbiter[K comparable] struct {
	mgr    *lock.LockManager[K]
	graph  *Graph[lock.Locker[K]]
	logger *slog.Logger
}

// NewArbiter creates an Arbiter over mgr. The arbiter owns its own graph;
// multiple arbiters over the same manager would duplicate detection work
// but not produce incorrect results.
func NewArbiter[K comparable](mgr *lock.LockManager[K]) *Arbiter[K] {
	logger := logging.WithComponent(logging.GetLogger(), "deadlock.Arbiter")
	logger.Debug("arbiter initialized")
	return &Arbiter[K]{
		mgr:    mgr,
		graph:  NewGraph[lock.Locker[K]](),
		logger: logger,
	}
}

// Observe rebuilds the wait-for edges implied by key's current owners and
// waiters, then checks the graph for a cycle. If a cycle is found, it posts
// a DEADLOCK verdict on one locker in the cycle and reports true. The
// chosen locker's wait loop will observe the verdict the next time it
// re-checks its injected conflict.
func (a *Arbiter[K]) Observe(key K) bool {
	owners := a.mgr.GetOwners(key)
	waiters := a.mgr.GetWaiters(key)

	// Replace only each waiter's outgoing edges; edges pointing at it come
	// from lockers waiting on keys it owns and still hold.
	a.graph.mu.Lock()
	for _, w := range waiters {
		delete(a.graph.edges, w.Locker)
	}
	a.graph.cacheValid = false
	a.graph.mu.Unlock()
	for _, w := range waiters {
		for _, o := range owners {
			if o.Locker == w.Locker {
				continue
			}
			a.graph.AddEdge(w.Locker, o.Locker)
		}
	}

	if !a.graph.HasCycle() {
		return false
	}

	cycle := a.graph.FindCycle()
	if len(cycle) == 0 {
		return false
	}

	victim := cycle[len(cycle)-1]
	injectable, ok := victim.(lock.ConflictInjectable[K])
	if !ok {
		return false
	}

	logging.WithConflict(logging.WithLockerKey(a.logger, victim.ID(), key), lock.ConflictDeadlock.String()).
		Warn("deadlock detected, injecting conflict", "cycle_len", len(cycle))
	injectable.SetConflict(&lock.LockConflict[K]{Type: lock.ConflictDeadlock})

	// Drop the victim's edges immediately rather than waiting for its wait
	// loop to unwind; otherwise a second Observe call before that happens
	// would rediscover the same cycle and pick the same victim again.
	a.graph.RemoveNode(victim)
	return true
}

// Forget drops any edges recorded for locker. Callers should invoke this
// once a locker's wait resolves, whatever the outcome, so stale edges never
// accumulate across unrelated keys.
func (a *Arbiter[K]) Forget(locker lock.Locker[K]) {
	a.graph.RemoveNode(locker)
}

// Run polls Observe for every key reported by keys, at the given interval,
// until ctx is canceled. keys is called fresh on every tick so the arbiter
// always scans the manager's current contention, not a stale snapshot.
func (a *Arbiter[K]) Run(ctx context.Context, interval time.Duration, keys func() []K) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, k := range keys() {
				a.Observe(k)
			}
		}
	}
}

// Package deadlock implements the external conflict arbiter the lock
// package delegates cycle detection to. It is a separate package on
// purpose: lock.LockManager never looks for cycles itself (that
// responsibility is explicitly out of scope for it), so the wait-for graph
// and the goroutine that walks it for cycles live here instead, observing
// the manager from the outside through the same hooks any other external
// collaborator would use.
//
// # Components
//
// [Graph] tracks "waits-for" edges between lockers: an edge A→B means A is
// blocked waiting for a resource B currently holds. It is a direct
// generalization of a classic wait-for graph, parameterized over any
// comparable node type (in this module's case, lock.Locker[K] values,
// which are comparable because every concrete locker is a pointer type).
//
// [Arbiter] wires a Graph to a lock.LockManager: Arbiter.Observe reads a
// key's current owners and waiters from the manager, records the implied
// edges, and runs cycle detection (Arbiter.Run does this on a timer for a
// caller-supplied set of keys). If a cycle is found, it posts a DEADLOCK verdict
// on one of the lockers in the cycle via the lock.ConflictInjectable hook,
// which the manager's wait loop observes and returns as a sticky,
// terminal conflict.
package deadlock

// Package lock implements a generic, key-based, sharded lock manager
// supporting shared/exclusive modes, read-to-write upgrade, bounded-wait
// timeouts, and deadlock detection delegated to an external arbiter.
//
// # Overview
//
// The package does not implement a fixed locking protocol for a particular
// resource type; it is parameterized over an opaque, comparable key type K
// and is meant to back the concurrency-control layer of any component that
// needs to serialize access to named resources across many actors
// ("lockers"). Two lock modes are supported:
//
//   - shared (read): compatible with other shared holders.
//   - exclusive (write): incompatible with all other holders.
//
// A locker holding a shared lock may request an upgrade to exclusive; the
// upgrade is granted immediately if the locker is the sole owner, and queued
// otherwise.
//
// # Components
//
// [LockManager] is the single public entry point. Callers use
// [LockManager.Lock] / [LockManager.LockNoWait] to acquire locks,
// [LockManager.WaitForLock] to resolve a previously blocked attempt, and
// [LockManager.ReleaseLock] to release. Internally it coordinates:
//
//   - [Lock]: per-key owners/waiters lists and grant/release logic,
//     guarded entirely by its shard's mutex (it holds no mutex of its own).
//   - [Locker]: a sealed interface implemented by [BasicLocker] (single
//     outstanding wait) and [MultiLocker] (tracks every key it owns, for
//     bulk release at transaction end).
//   - sharding: a fixed array of independent key→Lock maps, dispatched by
//     a hash of the key, so unrelated keys never contend.
//
// Deadlock detection is explicitly out of scope for this package: a
// locker's injected conflict slot is written by an external collaborator
// (see the sibling deadlock package) and read back by the wait loop.
//
// # Lock Acquisition Flow
//
// When [LockManager.Lock] or [LockManager.LockNoWait] is called:
//
//  1. If the locker already holds a sufficient mode, return immediately.
//  2. If the locker holds a read lock and requests write, treat as an
//     upgrade: queue with Upgrade=true, promoting immediately if the
//     locker is the sole owner.
//  3. If the request is compatible with current owners and no waiter
//     precedes it, grant and return.
//  4. Otherwise queue as a waiter and return a BLOCKED conflict.
//
// [LockManager.WaitForLock] then loops: re-check ownership, read the
// injected conflict, check the deadline, and otherwise block on the
// locker's condition variable until woken by a release, a timer, or
// context cancellation.
//
// # Synchronization discipline
//
// The package enforces, at the code level and (in builds tagged
// lockdebug) via runtime assertions, that a goroutine holds at most one
// locker mutex and at most one shard mutex at a time, and that the locker
// mutex is always acquired first. This ordering is what makes the manager
// provably free of internal deadlock.
package lock

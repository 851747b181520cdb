package lock

// Lock holds the owners and waiters for a single key. It carries no mutex
// of its own; every access is serialized by the shard mutex of the
// LockManager that owns it (see the synchronization discipline section of
// doc.go). This keeps Lock itself trivially single-threaded to reason
// about: all the concurrency complexity lives in the shard and locker
// mutexes above it.
type Lock[K comparable] struct {
	key     K
	owners  []LockRequest[K]
	waiters []LockRequest[K]
}

func newLock[K comparable](key K) *Lock[K] {
	return &Lock[K]{key: key}
}

// empty reports whether this Lock has no owners and no waiters, the
// condition under which the shard map should drop it.
func (l *Lock[K]) empty() bool {
	return len(l.owners) == 0 && len(l.waiters) == 0
}

func (l *Lock[K]) ownerIndex(locker Locker[K]) int {
	for i, o := range l.owners {
		if o.Locker == locker {
			return i
		}
	}
	return -1
}

// soleOwnerIsWriter reports whether owners holds exactly one entry and it is a
// write (or upgraded) owner.
func (l *Lock[K]) soleOwnerIsWriter() bool {
	return len(l.owners) == 1 && l.owners[0].ForWrite
}

func (l *Lock[K]) hasWriteOwner() bool {
	for _, o := range l.owners {
		if o.ForWrite {
			return true
		}
	}
	return false
}

// mode summarizes the current owner set for introspection callers: "free"
// with no owners, "exclusive" with a write owner, "shared" otherwise.
func (l *Lock[K]) mode() string {
	switch {
	case len(l.owners) == 0:
		return "free"
	case l.soleOwnerIsWriter(), l.hasWriteOwner():
		return "exclusive"
	default:
		return "shared"
	}
}

// conflictsWithOwners returns a copy of the first current owner that
// forWrite would conflict with, or nil, ignoring selfIdx (the requester's
// own owner entry, if any, so an in-place upgrade doesn't conflict with
// itself).
func (l *Lock[K]) conflictsWithOwners(forWrite bool, selfIdx int) *LockRequest[K] {
	for i, o := range l.owners {
		if i == selfIdx {
			continue
		}
		if forWrite || o.ForWrite {
			return &o
		}
	}
	return nil
}

// tryGrant implements the grant rule of §4.1: already-granted short
// circuit, in-place upgrade, conflict test against current owners, and the
// fairness rule that a compatible request only jumps the waiters queue when
// the queue is empty. Returns the attempt result; on a BLOCKED result the
// request has already been appended to waiters.
func (l *Lock[K]) tryGrant(locker Locker[K], forWrite, upgrade bool) *LockAttemptResult[K] {
	req := locker.newLockRequest(l.key, forWrite, upgrade)

	if idx := l.ownerIndex(locker); idx >= 0 {
		existing := l.owners[idx]
		if existing.ForWrite || !forWrite {
			return &LockAttemptResult[K]{Request: req}
		}
		// Read owner requesting write: queue as an upgrade. If this
		// locker is the only owner, promote immediately in place.
		upgradeReq := locker.newLockRequest(l.key, true, true)
		if len(l.owners) == 1 {
			l.owners[idx] = upgradeReq
			return &LockAttemptResult[K]{Request: upgradeReq}
		}
		l.waiters = append(l.waiters, upgradeReq)
		return &LockAttemptResult[K]{
			Request:  upgradeReq,
			Conflict: &LockConflict[K]{Type: ConflictBlocked, ConflictingRequest: l.conflictsWithOwners(true, idx)},
		}
	}

	conflict := l.conflictsWithOwners(forWrite, -1)
	if conflict == nil && len(l.waiters) == 0 {
		l.owners = append(l.owners, req)
		return &LockAttemptResult[K]{Request: req}
	}

	l.waiters = append(l.waiters, req)
	if conflict == nil {
		// Compatible with owners but must still queue behind existing
		// waiters (writer-starvation avoidance).
		first := l.waiters[0]
		conflict = &first
		if conflict.Locker == locker {
			conflict = nil
		}
	}
	return &LockAttemptResult[K]{
		Request:  req,
		Conflict: &LockConflict[K]{Type: ConflictBlocked, ConflictingRequest: conflict},
	}
}

// removeWaiter removes locker's entry from waiters, if present.
func (l *Lock[K]) removeWaiter(locker Locker[K]) {
	for i, w := range l.waiters {
		if w.Locker == locker {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// removeOwner removes locker's entry from owners, if present, and reports
// whether it held a write (or upgrade) lock.
func (l *Lock[K]) removeOwner(locker Locker[K]) (wasWrite, found bool) {
	idx := l.ownerIndex(locker)
	if idx < 0 {
		return false, false
	}
	wasWrite = l.owners[idx].ForWrite
	l.owners = append(l.owners[:idx], l.owners[idx+1:]...)
	return wasWrite, true
}

// downgradeOwner converts locker's write entry to a read entry in place.
func (l *Lock[K]) downgradeOwner(locker Locker[K]) bool {
	idx := l.ownerIndex(locker)
	if idx < 0 || !l.owners[idx].ForWrite {
		return false
	}
	l.owners[idx] = locker.newLockRequest(l.key, false, false)
	return true
}

// promoteWaiters scans waiters front-to-back, moving every request now
// compatible with the current owners into owners. A promoted reader lets
// the scan continue; a promoted writer (or upgrade), or any waiter that
// cannot be promoted, stops the scan, and everyone behind it stays queued
// in FIFO order. Returns the requests that became owners, in promotion
// order.
func (l *Lock[K]) promoteWaiters() []LockRequest[K] {
	var promoted []LockRequest[K]
	remaining := l.waiters[:0:0]

	stopped := false
	for _, w := range l.waiters {
		if stopped {
			remaining = append(remaining, w)
			continue
		}
		if l.grantable(w) {
			if w.Upgrade {
				l.removeOwner(w.Locker)
			}
			l.owners = append(l.owners, w)
			promoted = append(promoted, w)
			if w.ForWrite {
				stopped = true
			}
			continue
		}
		remaining = append(remaining, w)
		stopped = true
	}
	l.waiters = remaining
	return promoted
}

// grantable reports whether req is compatible with the current owners,
// disregarding req's own pre-existing owner entry (the upgrade case).
func (l *Lock[K]) grantable(req LockRequest[K]) bool {
	selfIdx := -1
	if req.Upgrade {
		selfIdx = l.ownerIndex(req.Locker)
	}
	return l.conflictsWithOwners(req.ForWrite, selfIdx) == nil
}

// ownersSnapshot returns a copy of owners safe to hand to a caller.
func (l *Lock[K]) ownersSnapshot() []LockRequest[K] {
	out := make([]LockRequest[K], len(l.owners))
	copy(out, l.owners)
	return out
}

// waitersSnapshot returns a copy of waiters safe to hand to a caller.
func (l *Lock[K]) waitersSnapshot() []LockRequest[K] {
	out := make([]LockRequest[K], len(l.waiters))
	copy(out, l.waiters)
	return out
}

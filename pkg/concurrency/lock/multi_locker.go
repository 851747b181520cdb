package lock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MultiLocker is a Locker suited to a transactional consumer: besides the
// single outstanding wait every Locker supports, it records every key it
// currently owns so the owning transaction can release them all at commit
// or abort without having to remember them itself.
type MultiLocker[K comparable] struct {
	state   waitState[K]
	timeout time.Duration

	heldMu sync.Mutex
	held   map[K]bool
}

// NewMultiLocker creates a MultiLocker. timeout, if positive, overrides the
// manager's default timeout for every wait started by this locker.
func NewMultiLocker[K comparable](timeout time.Duration) *MultiLocker[K] {
	l := &MultiLocker[K]{timeout: timeout, held: make(map[K]bool)}
	l.state.init()
	return l
}

func (l *MultiLocker[K]) ID() uuid.UUID                   { return l.state.id }
func (l *MultiLocker[K]) GetConflict() *LockConflict[K]   { return l.state.GetConflict() }
func (l *MultiLocker[K]) ClearConflict()                  { l.state.ClearConflict() }
func (l *MultiLocker[K]) SetConflict(cf *LockConflict[K]) { l.state.SetConflict(cf) }

func (l *MultiLocker[K]) GetLockTimeoutTime(now time.Time, defaultTimeout time.Duration) time.Time {
	if l.timeout > 0 {
		return defaultLockTimeoutTime(now, l.timeout)
	}
	return defaultLockTimeoutTime(now, defaultTimeout)
}

func (l *MultiLocker[K]) getWaitingFor() *LockAttemptResult[K]        { return l.state.getWaitingFor() }
func (l *MultiLocker[K]) setWaitingFor(v *LockAttemptResult[K]) error { return l.state.setWaitingFor(v) }
func (l *MultiLocker[K]) getWaitingForLocked() *LockAttemptResult[K]  { return l.state.getWaitingForLocked() }
func (l *MultiLocker[K]) setWaitingForLocked(v *LockAttemptResult[K]) { l.state.setWaitingForLocked(v) }
func (l *MultiLocker[K]) getConflictLocked() *LockConflict[K]         { return l.state.getConflictLocked() }
func (l *MultiLocker[K]) clearConflictLocked()                       { l.state.clearConflictLocked() }
func (l *MultiLocker[K]) cond() *sync.Cond                            { return l.state.cond() }
func (l *MultiLocker[K]) boundTo(mgr any) bool                        { return l.state.boundTo(mgr) }
func (l *MultiLocker[K]) bindTo(mgr any)                              { l.state.bindTo(mgr) }
func (l *MultiLocker[K]) isLocker()                                   {}

// allowConcurrentWait reports true: a transactional locker tracks multiple
// held keys and is not restricted to BasicLocker's single-outstanding-wait
// rule.
func (l *MultiLocker[K]) allowConcurrentWait() bool { return true }

func (l *MultiLocker[K]) newLockRequest(key K, forWrite, upgrade bool) LockRequest[K] {
	return LockRequest[K]{Locker: l, Key: key, ForWrite: forWrite, Upgrade: upgrade}
}

// noteHeld records that this locker now owns key. Called by the manager
// immediately after a synchronous or wait-resolved grant.
func (l *MultiLocker[K]) noteHeld(key K) {
	l.heldMu.Lock()
	defer l.heldMu.Unlock()
	l.held[key] = true
}

// noteReleased forgets that this locker owns key. Called by the manager
// after ReleaseLock.
func (l *MultiLocker[K]) noteReleased(key K) {
	l.heldMu.Lock()
	defer l.heldMu.Unlock()
	delete(l.held, key)
}

// HeldKeys returns a snapshot of every key this locker currently owns,
// suitable for driving a bulk release at transaction end.
func (l *MultiLocker[K]) HeldKeys() []K {
	l.heldMu.Lock()
	defer l.heldMu.Unlock()
	keys := make([]K, 0, len(l.held))
	for k := range l.held {
		keys = append(keys, k)
	}
	return keys
}

package lock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// BasicLocker is a Locker that permits at most one outstanding wait at a
// time. It has no notion of "the transaction this belongs to" beyond
// identity; callers that need to track every key they hold (for bulk
// release) should use MultiLocker instead.
type BasicLocker[K comparable] struct {
	state   waitState[K]
	timeout time.Duration
}

// NewBasicLocker creates a BasicLocker. timeout, if positive, overrides the
// manager's default timeout for every wait started by this locker.
func NewBasicLocker[K comparable](timeout time.Duration) *BasicLocker[K] {
	l := &BasicLocker[K]{timeout: timeout}
	l.state.init()
	return l
}

func (l *BasicLocker[K]) ID() uuid.UUID                 { return l.state.id }
func (l *BasicLocker[K]) GetConflict() *LockConflict[K] { return l.state.GetConflict() }
func (l *BasicLocker[K]) ClearConflict()                { l.state.ClearConflict() }
func (l *BasicLocker[K]) SetConflict(cf *LockConflict[K]) { l.state.SetConflict(cf) }

func (l *BasicLocker[K]) GetLockTimeoutTime(now time.Time, defaultTimeout time.Duration) time.Time {
	if l.timeout > 0 {
		return defaultLockTimeoutTime(now, l.timeout)
	}
	return defaultLockTimeoutTime(now, defaultTimeout)
}

func (l *BasicLocker[K]) getWaitingFor() *LockAttemptResult[K]        { return l.state.getWaitingFor() }
func (l *BasicLocker[K]) setWaitingFor(v *LockAttemptResult[K]) error { return l.state.setWaitingFor(v) }
func (l *BasicLocker[K]) getWaitingForLocked() *LockAttemptResult[K]  { return l.state.getWaitingForLocked() }
func (l *BasicLocker[K]) setWaitingForLocked(v *LockAttemptResult[K]) { l.state.setWaitingForLocked(v) }
func (l *BasicLocker[K]) getConflictLocked() *LockConflict[K]         { return l.state.getConflictLocked() }
func (l *BasicLocker[K]) clearConflictLocked()                       { l.state.clearConflictLocked() }
func (l *BasicLocker[K]) cond() *sync.Cond                            { return l.state.cond() }
func (l *BasicLocker[K]) boundTo(mgr any) bool                        { return l.state.boundTo(mgr) }
func (l *BasicLocker[K]) bindTo(mgr any)                              { l.state.bindTo(mgr) }
func (l *BasicLocker[K]) isLocker()                                   {}

// allowConcurrentWait reports false: a BasicLocker with an outstanding wait
// rejects a second LockNoWait with an invalid-state error (code
// LOCK_INVALID_STATE) rather than queueing it.
func (l *BasicLocker[K]) allowConcurrentWait() bool { return false }

func (l *BasicLocker[K]) newLockRequest(key K, forWrite, upgrade bool) LockRequest[K] {
	return LockRequest[K]{Locker: l, Key: key, ForWrite: forWrite, Upgrade: upgrade}
}

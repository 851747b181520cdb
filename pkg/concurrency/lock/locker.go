package lock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker is the external handle an actor (one transaction, one locker)
// presents to a LockManager. It is sealed to this package: the only
// implementations are BasicLocker and MultiLocker. Consumers that need a
// different waiting discipline compose one of those rather than
// implementing Locker directly, avoiding the dynamic-subclass-override
// pattern the interface replaces.
//
// Every unexported method is manager-private: called only by the
// LockManager currently servicing a request for this locker. The
// waitingFor accessors and bindTo/boundTo acquire the locker's own mutex
// themselves; cond, newLockRequest and isLocker take no lock. The *Locked
// variants assume that mutex is already held by the caller
// (LockManager.waitForLockInternal, which holds it across the entire
// wait-loop body per the locker-mutex-first ordering described in doc.go).
type Locker[K comparable] interface {
	// ID returns a stable, cosmetic identity used only for logging and
	// metrics labels. Lockers are never compared by ID; the manager always
	// compares by pointer identity.
	ID() uuid.UUID

	// GetConflict returns the verdict currently injected by an external
	// deadlock detector, or nil if none. Must be non-blocking and free of
	// side effects beyond reading this locker's own state.
	GetConflict() *LockConflict[K]

	// ClearConflict dismisses a non-deadlock injected conflict. A DEADLOCK
	// verdict is sticky; implementations must not clear it here.
	ClearConflict()

	// GetLockTimeoutTime returns the absolute deadline for a wait started
	// at now, given the manager's default timeout. Implementations may
	// override with a transaction-specific deadline.
	GetLockTimeoutTime(now time.Time, defaultTimeout time.Duration) time.Time

	getWaitingFor() *LockAttemptResult[K]
	setWaitingFor(*LockAttemptResult[K]) error
	getWaitingForLocked() *LockAttemptResult[K]
	setWaitingForLocked(*LockAttemptResult[K])
	getConflictLocked() *LockConflict[K]
	clearConflictLocked()
	newLockRequest(key K, forWrite, upgrade bool) LockRequest[K]
	cond() *sync.Cond
	boundTo(mgr any) bool
	bindTo(mgr any)

	isLocker()
}

// ConflictInjectable is implemented by every concrete Locker and is the
// hook an external deadlock arbiter uses to post a verdict. It is a
// separate interface from Locker because the manager never needs to set a
// conflict itself; only external collaborators do.
type ConflictInjectable[K comparable] interface {
	SetConflict(*LockConflict[K])
}

// singleWaiter is implemented by locker variants that restrict themselves
// to one outstanding LockNoWait at a time. BasicLocker reports false from
// allowConcurrentWait; MultiLocker reports true. A Locker that implements
// neither this interface is treated as allowing concurrent waits.
type singleWaiter interface {
	allowConcurrentWait() bool
}

// waitState holds every field common to a Locker implementation: the
// condition variable the manager blocks on, the pending attempt, the
// injected conflict, and the manager this locker was first used against.
// Both waitingFor and the injected conflict are guarded by the same mutex
// (mu, also the mutex backing condVar) so that "the locker monitor" in the
// §4.5 discipline corresponds to exactly one Go mutex per locker, not two.
//
// waitState carries no methods whose behavior depends on the identity of
// the struct embedding it, so BasicLocker and MultiLocker compose it as a
// named field rather than an embedded one: embedding here would silently
// bind any later method override to waitState's own receiver instead of
// the locker's.
type waitState[K comparable] struct {
	mu         sync.Mutex
	condVar    *sync.Cond
	id         uuid.UUID
	manager    any
	waitingFor *LockAttemptResult[K]
	conflict   *LockConflict[K]
}

func (s *waitState[K]) init() {
	s.id = uuid.New()
	s.condVar = sync.NewCond(&s.mu)
}

func (s *waitState[K]) cond() *sync.Cond {
	return s.condVar
}

func (s *waitState[K]) boundTo(mgr any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager == nil || s.manager == mgr
}

func (s *waitState[K]) bindTo(mgr any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		s.manager = mgr
	}
}

func (s *waitState[K]) getWaitingFor() *LockAttemptResult[K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingFor
}

func (s *waitState[K]) setWaitingFor(v *LockAttemptResult[K]) error {
	if v != nil && v.Conflict == nil {
		return errInvalidArgument("setWaitingFor", "attempt to specify a lock attempt result that is not a conflict")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitingFor = v
	return nil
}

func (s *waitState[K]) getWaitingForLocked() *LockAttemptResult[K] {
	return s.waitingFor
}

func (s *waitState[K]) setWaitingForLocked(v *LockAttemptResult[K]) {
	s.waitingFor = v
}

func (s *waitState[K]) getConflictLocked() *LockConflict[K] {
	return s.conflict
}

func (s *waitState[K]) clearConflictLocked() {
	if s.conflict != nil && s.conflict.Type == ConflictDeadlock {
		return
	}
	s.conflict = nil
}

func (s *waitState[K]) GetConflict() *LockConflict[K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflict
}

func (s *waitState[K]) ClearConflict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearConflictLocked()
}

// SetConflict is called by an external deadlock arbiter, never by the
// manager itself. It broadcasts on the condition variable so a goroutine
// currently blocked in waitForLockInternal wakes to observe the verdict.
func (s *waitState[K]) SetConflict(cf *LockConflict[K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflict = cf
	s.condVar.Broadcast()
}

// maxTime is used as the saturation value for an overflowing deadline
// computation; it is far enough in the future to never practically elapse.
var maxTime = time.Unix(1<<62, 0)

// defaultLockTimeoutTime computes now+timeout, saturating at maxTime: any
// sum later than maxTime, including one that would overflow, returns maxTime.
func defaultLockTimeoutTime(now time.Time, timeout time.Duration) time.Time {
	if timeout <= 0 {
		return now
	}
	deadline := now.Add(timeout)
	if deadline.Before(now) || deadline.After(maxTime) {
		return maxTime
	}
	return deadline
}

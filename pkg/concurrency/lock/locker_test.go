package lock

import "testing"

func TestSetWaitingForRejectsNonConflictResult(t *testing.T) {
	l := NewBasicLocker[string](0)
	bad := &LockAttemptResult[string]{Request: l.newLockRequest("A", false, false)}
	if err := l.setWaitingFor(bad); err == nil {
		t.Fatal("expected an invalid-argument error for a waiting-for result without a conflict")
	}
}

func TestSetWaitingForAcceptsNil(t *testing.T) {
	l := NewBasicLocker[string](0)
	if err := l.setWaitingFor(nil); err != nil {
		t.Fatalf("clearing waitingFor with nil should never fail: %v", err)
	}
	if l.getWaitingFor() != nil {
		t.Error("expected waitingFor to be nil")
	}
}

func TestGetSetConflictRoundTrip(t *testing.T) {
	l := NewBasicLocker[string](0)
	if l.GetConflict() != nil {
		t.Fatal("new locker should have no conflict")
	}
	cf := &LockConflict[string]{Type: ConflictTimeout}
	l.SetConflict(cf)
	if got := l.GetConflict(); got != cf {
		t.Fatalf("expected the injected conflict back, got %v", got)
	}
	l.ClearConflict()
	if l.GetConflict() != nil {
		t.Error("ClearConflict should dismiss a non-deadlock conflict")
	}
}

func TestClearConflictDoesNotDismissDeadlock(t *testing.T) {
	l := NewBasicLocker[string](0)
	l.SetConflict(&LockConflict[string]{Type: ConflictDeadlock})
	l.ClearConflict()
	if cf := l.GetConflict(); cf == nil || cf.Type != ConflictDeadlock {
		t.Fatalf("DEADLOCK should be sticky across ClearConflict, got %v", cf)
	}
}

func TestBoundToFirstManagerWins(t *testing.T) {
	l := NewBasicLocker[string](0)
	mgrA := "manager-a"
	mgrB := "manager-b"

	if !l.boundTo(mgrA) {
		t.Fatal("an unbound locker should accept any manager")
	}
	l.bindTo(mgrA)
	if !l.boundTo(mgrA) {
		t.Error("locker should remain bound to the manager it first bound to")
	}
	if l.boundTo(mgrB) {
		t.Error("locker bound to one manager should reject a different one")
	}
}

func TestBasicLockerAllowConcurrentWaitFalse(t *testing.T) {
	l := NewBasicLocker[string](0)
	if l.allowConcurrentWait() {
		t.Error("BasicLocker must restrict itself to one outstanding wait")
	}
}

func TestMultiLockerAllowConcurrentWaitTrue(t *testing.T) {
	l := NewMultiLocker[string](0)
	if !l.allowConcurrentWait() {
		t.Error("MultiLocker should allow concurrent outstanding waits")
	}
}

func TestDefaultLockTimeoutTimeSaturates(t *testing.T) {
	now := maxTime
	got := defaultLockTimeoutTime(now, 1)
	if got != maxTime {
		t.Errorf("overflowing deadline should saturate at maxTime, got %v", got)
	}
	if defaultLockTimeoutTime(now, 0) != now {
		t.Error("non-positive timeout should return now unchanged")
	}
}

func TestIDsAreDistinctAndStable(t *testing.T) {
	l1 := NewBasicLocker[string](0)
	l2 := NewBasicLocker[string](0)
	if l1.ID() == l2.ID() {
		t.Fatal("distinct lockers should have distinct identities")
	}
	if l1.ID() != l1.ID() {
		t.Fatal("a locker's identity must be stable across calls")
	}
}

package lock

import "testing"

func TestTryGrantReadersCoexist(t *testing.T) {
	l := newLock("A")
	l1 := NewBasicLocker[string](0)
	l2 := NewBasicLocker[string](0)

	if res := l.tryGrant(l1, false, false); !res.Granted() {
		t.Fatalf("first reader should grant immediately, got %v", res.Conflict)
	}
	if res := l.tryGrant(l2, false, false); !res.Granted() {
		t.Fatalf("second reader should grant immediately, got %v", res.Conflict)
	}
	if len(l.owners) != 2 {
		t.Fatalf("expected 2 owners, got %d", len(l.owners))
	}
}

func TestTryGrantWriterExcludesReader(t *testing.T) {
	l := newLock("A")
	writer := NewBasicLocker[string](0)
	reader := NewBasicLocker[string](0)

	if res := l.tryGrant(writer, true, false); !res.Granted() {
		t.Fatalf("writer should grant on an empty lock, got %v", res.Conflict)
	}
	res := l.tryGrant(reader, false, false)
	if res.Granted() {
		t.Fatal("reader should not grant while a writer owns the lock")
	}
	if res.Conflict.Type != ConflictBlocked {
		t.Errorf("expected BLOCKED, got %s", res.Conflict.Type)
	}
	if len(l.waiters) != 1 {
		t.Fatalf("expected reader queued as a waiter, got %d", len(l.waiters))
	}
}

func TestTryGrantAlreadyOwnedIsNoop(t *testing.T) {
	l := newLock("A")
	locker := NewBasicLocker[string](0)

	l.tryGrant(locker, false, false)
	res := l.tryGrant(locker, false, false)
	if !res.Granted() {
		t.Fatal("requesting a mode already held should grant immediately")
	}
	if len(l.owners) != 1 {
		t.Fatalf("re-requesting the same mode should not duplicate the owner entry, got %d owners", len(l.owners))
	}
}

func TestTryGrantInPlaceUpgradeWhenSoleOwner(t *testing.T) {
	l := newLock("A")
	locker := NewBasicLocker[string](0)

	l.tryGrant(locker, false, false)
	res := l.tryGrant(locker, true, false)
	if !res.Granted() {
		t.Fatalf("sole reader upgrading to writer should promote immediately, got %v", res.Conflict)
	}
	if len(l.owners) != 1 || !l.owners[0].ForWrite {
		t.Fatalf("expected a single write owner after in-place upgrade, got %+v", l.owners)
	}
	if !l.soleOwnerIsWriter() {
		t.Error("soleOwnerIsWriter should report true after in-place upgrade")
	}
}

func TestTryGrantUpgradeQueuesWhenNotSoleOwner(t *testing.T) {
	l := newLock("A")
	l1 := NewBasicLocker[string](0)
	l2 := NewBasicLocker[string](0)

	l.tryGrant(l1, false, false)
	l.tryGrant(l2, false, false)

	res := l.tryGrant(l1, true, false)
	if res.Granted() {
		t.Fatal("upgrade with another reader present must not grant immediately")
	}
	if !res.Request.Upgrade {
		t.Error("queued upgrade request should carry Upgrade=true")
	}
	if len(l.waiters) != 1 || !l.waiters[0].Upgrade {
		t.Fatalf("expected upgrade request queued as a waiter, got %+v", l.waiters)
	}
}

func TestWriterStarvationAvoided(t *testing.T) {
	l := newLock("A")
	reader1 := NewBasicLocker[string](0)
	writer := NewBasicLocker[string](0)
	reader2 := NewBasicLocker[string](0)

	l.tryGrant(reader1, false, false)
	res := l.tryGrant(writer, true, false)
	if res.Granted() {
		t.Fatal("writer should block behind the existing reader")
	}

	res = l.tryGrant(reader2, false, false)
	if res.Granted() {
		t.Fatal("a later reader must queue behind the waiting writer, not jump ahead of it")
	}
	if len(l.waiters) != 2 {
		t.Fatalf("expected both writer and later reader queued, got %d", len(l.waiters))
	}
}

func TestPromoteWaitersStopsAtWriter(t *testing.T) {
	l := newLock("A")
	owner := NewBasicLocker[string](0)
	writer := NewBasicLocker[string](0)
	reader := NewBasicLocker[string](0)

	l.tryGrant(owner, false, false)
	l.tryGrant(writer, true, false)
	l.tryGrant(reader, false, false)

	l.removeOwner(owner)
	promoted := l.promoteWaiters()

	if len(promoted) != 1 || promoted[0].Locker != writer {
		t.Fatalf("expected only the writer promoted, got %+v", promoted)
	}
	if len(l.waiters) != 1 || l.waiters[0].Locker != reader {
		t.Fatalf("reader behind the writer should remain queued, got %+v", l.waiters)
	}
}

func TestModeReflectsOwnership(t *testing.T) {
	l := newLock("A")
	if l.mode() != "free" {
		t.Errorf("empty lock should report free, got %s", l.mode())
	}

	reader := NewBasicLocker[string](0)
	l.tryGrant(reader, false, false)
	if l.mode() != "shared" {
		t.Errorf("single reader should report shared, got %s", l.mode())
	}

	l.tryGrant(reader, true, false)
	if l.mode() != "exclusive" {
		t.Errorf("sole writer should report exclusive, got %s", l.mode())
	}
}

func TestRemoveWaiterNoop(t *testing.T) {
	l := newLock("A")
	locker := NewBasicLocker[string](0)
	l.removeWaiter(locker) // should not panic on an empty waiters slice
	if len(l.waiters) != 0 {
		t.Error("removing from an empty waiters slice should be a no-op")
	}
}

func TestDeleteIfEmpty(t *testing.T) {
	m := map[string]*Lock[string]{"A": newLock("A")}
	l := m["A"]

	owner := NewBasicLocker[string](0)
	l.tryGrant(owner, false, false)
	deleteIfEmpty(m, "A", l)
	if _, ok := m["A"]; !ok {
		t.Fatal("non-empty lock should not be removed")
	}

	locker := NewBasicLocker[string](0)
	l.tryGrant(locker, false, false)
	l.removeOwner(owner)
	l.removeOwner(locker)
	deleteIfEmpty(m, "A", l)
	if _, ok := m["A"]; ok {
		t.Error("empty lock should be removed from the map")
	}
}

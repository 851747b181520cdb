package lock

import "testing"

func TestLockConflictTypeString(t *testing.T) {
	cases := map[LockConflictType]string{
		ConflictBlocked:     "BLOCKED",
		ConflictDeadlock:    "DEADLOCK",
		ConflictTimeout:     "TIMEOUT",
		ConflictDenied:      "DENIED",
		ConflictInterrupted: "INTERRUPTED",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
	if got := LockConflictType(99).String(); got == "" {
		t.Error("unknown conflict type should still stringify to something non-empty")
	}
}

func TestLockRequestString(t *testing.T) {
	l := NewBasicLocker[string](0)
	req := LockRequest[string]{Locker: l, Key: "A", ForWrite: true}
	s := req.String()
	if s == "" {
		t.Fatal("LockRequest.String() returned empty string")
	}

	upgrade := LockRequest[string]{Locker: l, Key: "A", ForWrite: true, Upgrade: true}
	if upgrade.String() == req.String() {
		t.Error("upgrade request should render differently from a plain write request")
	}
}

func TestLockConflictString(t *testing.T) {
	var nilConflict *LockConflict[string]
	if nilConflict.String() != "<none>" {
		t.Errorf("nil conflict should stringify to <none>, got %q", nilConflict.String())
	}

	c := &LockConflict[string]{Type: ConflictTimeout}
	if c.String() != "TIMEOUT" {
		t.Errorf("conflict without ConflictingRequest should stringify to just the type, got %q", c.String())
	}

	l := NewBasicLocker[string](0)
	req := l.newLockRequest("A", true, false)
	c = &LockConflict[string]{Type: ConflictBlocked, ConflictingRequest: &req}
	if c.String() == "TIMEOUT" || c.String() == "BLOCKED" {
		t.Errorf("conflict with a ConflictingRequest should include it, got %q", c.String())
	}
}

func TestLockAttemptResultGranted(t *testing.T) {
	var nilResult *LockAttemptResult[string]
	if !nilResult.Granted() {
		t.Error("nil LockAttemptResult should report Granted")
	}

	granted := &LockAttemptResult[string]{}
	if !granted.Granted() {
		t.Error("result with nil Conflict should report Granted")
	}

	blocked := &LockAttemptResult[string]{Conflict: &LockConflict[string]{Type: ConflictBlocked}}
	if blocked.Granted() {
		t.Error("result with a non-nil Conflict should not report Granted")
	}
}

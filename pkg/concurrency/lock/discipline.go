package lock

// disciplineState tracks, for the single call chain currently executing a
// public LockManager operation, which mutex classes are held. It is
// created once per external call and threaded through the internal
// methods that acquire locker and shard mutexes, playing the role that
// thread-local bookkeeping would in a runtime with that primitive,
// without relying on any form of goroutine-local storage (Go deliberately
// has none).
//
// In builds tagged lockdebug, the note*/check* methods (discipline_debug.go)
// assert the invariants of §4.5: at most one of each mutex class held at a
// time, and the locker mutex always acquired before the shard mutex. In
// default builds (discipline_release.go) every method is an empty inline
// function; the struct still exists but carries no behavior; it is never
// the caller's responsibility to tell them apart.
type disciplineState struct {
	holdsLocker bool
	holdsShard  bool
}

func newDisciplineState() *disciplineState {
	return &disciplineState{}
}

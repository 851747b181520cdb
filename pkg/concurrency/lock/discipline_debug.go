//go:build lockdebug

package lock

// noteLockerSync records that the locker mutex was just acquired and
// panics if that violates the §4.5 ordering (shard already held) or
// re-entrancy (locker already held) rules.
func (d *disciplineState) noteLockerSync() {
	if d.holdsShard {
		panic("lock: synchronization discipline violation: acquired locker mutex while holding shard mutex")
	}
	if d.holdsLocker {
		panic("lock: synchronization discipline violation: re-entrant locker mutex acquisition")
	}
	d.holdsLocker = true
}

func (d *disciplineState) noteLockerUnsync() {
	d.holdsLocker = false
}

// noteShardSync records that the shard mutex was just acquired and panics
// on re-entrancy.
func (d *disciplineState) noteShardSync() {
	if d.holdsShard {
		panic("lock: synchronization discipline violation: re-entrant shard mutex acquisition")
	}
	d.holdsShard = true
}

func (d *disciplineState) noteShardUnsync() {
	d.holdsShard = false
}

// checkAllowLockerSync panics if the shard mutex is already held, which
// would mean a subsequent locker-mutex acquisition violated the required
// locker-before-shard ordering.
func (d *disciplineState) checkAllowLockerSync() {
	if d.holdsShard {
		panic("lock: synchronization discipline violation: locker mutex must be acquired before the shard mutex")
	}
}

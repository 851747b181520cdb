//go:build !lockdebug

package lock

func (d *disciplineState) noteLockerSync()       {}
func (d *disciplineState) noteLockerUnsync()     {}
func (d *disciplineState) noteShardSync()        {}
func (d *disciplineState) noteShardUnsync()      {}
func (d *disciplineState) checkAllowLockerSync() {}

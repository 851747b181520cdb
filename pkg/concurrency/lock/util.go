package lock

import "hash/maphash"

// shardHasher computes a stable shard index for an arbitrary comparable key
// using hash/maphash.Comparable, seeded once per manager so that the
// distribution is randomized per-process (defending against adversarial
// key sequences) while remaining stable for the manager's lifetime.
type shardHasher[K comparable] struct {
	seed maphash.Seed
}

func newShardHasher[K comparable]() shardHasher[K] {
	return shardHasher[K]{seed: maphash.MakeSeed()}
}

func (h shardHasher[K]) shardOf(key K, numShards uint32) uint32 {
	return uint32(maphash.Comparable(h.seed, key)) % numShards
}

// deleteIfEmpty removes key from m if the associated Lock is now empty,
// keeping the shard map free of dead entries the way the teacher's
// updateOrDelete kept its slice-valued maps clean. Reports whether it
// removed the entry.
func deleteIfEmpty[K comparable](m map[K]*Lock[K], key K, l *Lock[K]) bool {
	if l.empty() {
		delete(m, key)
		return true
	}
	return false
}

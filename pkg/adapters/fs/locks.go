package fs

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedMutex serializes writes per record ID. IDs hashing to the same shard
// share a lock, which only costs some parallelism.
type keyedMutex struct {
	shards [lockShards]sync.Mutex
}

// Lock acquires the lock guarding id and returns its release function.
func (k *keyedMutex) Lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &k.shards[h.Sum32()%lockShards]
	m.Lock()
	return m.Unlock
}

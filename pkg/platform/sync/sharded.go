package sync

import (
	"sync"
)

const shardCount = 32

// ShardedMap is a string-keyed map split across shards, each guarded by its
// own mutex. Operations on keys in different shards do not contend.
type ShardedMap[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

// NewShardedMap creates an empty ShardedMap.
func NewShardedMap[V any]() *ShardedMap[V] {
	s := &ShardedMap[V]{}
	for i := range s.shards {
		s.shards[i].m = make(map[string]V)
	}
	return s
}

// Update runs fn with the current value for key while holding the key's shard
// lock. fn returns the value to store; keep=false deletes the key. The error
// from fn is returned unchanged and leaves the entry untouched.
func (s *ShardedMap[V]) Update(key string, fn func(cur V, ok bool) (next V, keep bool, err error)) error {
	sh := &s.shards[shardFor(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.m[key]
	next, keep, err := fn(cur, ok)
	if err != nil {
		return err
	}
	if keep {
		sh.m[key] = next
	} else {
		delete(sh.m, key)
	}
	return nil
}

// Store sets key to v.
func (s *ShardedMap[V]) Store(key string, v V) {
	sh := &s.shards[shardFor(key)]
	sh.mu.Lock()
	sh.m[key] = v
	sh.mu.Unlock()
}

// Delete removes key.
func (s *ShardedMap[V]) Delete(key string) {
	sh := &s.shards[shardFor(key)]
	sh.mu.Lock()
	delete(sh.m, key)
	sh.mu.Unlock()
}

// Len returns the number of entries. Shards are counted one at a time, so the
// result is approximate under concurrent writes.
func (s *ShardedMap[V]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// Sweep deletes every entry for which drop returns true, one shard at a time,
// and returns how many were removed.
func (s *ShardedMap[V]) Sweep(drop func(key string, v V) bool) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, v := range sh.m {
			if drop(k, v) {
				delete(sh.m, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// shardFor returns the shard index for key. Empty keys map to shard 0.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString is a djb2-style hash used only for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

package multispann

import (
	"sync"

	"github.com/xDarkicex/spanndb/internal/spann"
)

// shardCount stands in for Rust's DashMap sharded locking: each user
// id hashes to one of a small fixed number of independently-locked
// buckets, so concurrent lookups for different users rarely contend.
const shardCount = 16

type shard struct {
	mu sync.RWMutex
	m  map[UserID]*spann.Spann
}

// ShardMap is the in-memory cache of lazily-decoded per-user Spann
// instances, per spec.md §4.5/§9: get-or-insert semantics, racy
// concurrent builds allowed, the losing build is simply discarded.
type ShardMap struct {
	shards [shardCount]*shard
}

// NewShardMap returns an empty cache.
func NewShardMap() *ShardMap {
	sm := &ShardMap{}
	for i := range sm.shards {
		sm.shards[i] = &shard{m: make(map[UserID]*spann.Spann)}
	}
	return sm
}

func (sm *ShardMap) shardFor(key UserID) *shard {
	return sm.shards[slotHash(key)%shardCount]
}

// Get returns the cached instance for key, if any.
func (sm *ShardMap) Get(key UserID) (*spann.Spann, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// GetOrInsert returns the cached instance for key, building it with
// build() on a miss. If another goroutine wins the race to insert
// first, this goroutine's build is closed and discarded rather than
// replacing the winner — racy inserts are safe because instances for
// the same key are interchangeable.
func (sm *ShardMap) GetOrInsert(key UserID, build func() (*spann.Spann, error)) (*spann.Spann, error) {
	if v, ok := sm.Get(key); ok {
		return v, nil
	}

	built, err := build()
	if err != nil {
		return nil, err
	}

	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		built.Close()
		return existing, nil
	}
	s.m[key] = built
	return built, nil
}

package lru

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"
)

// DefaultShardCount is the default number of shards for a Sharded cache.
const DefaultShardCount = 16

// ErrInvalidShardCount is returned when a sharded cache is created with fewer than one shard.
var ErrInvalidShardCount = errors.New("shard count must be greater than zero")

// Sharded distributes keys across multiple [Synced] caches to reduce lock
// contention under high concurrency. Each shard is an independent LRU with its
// own lock, so recency order and eviction are per shard, not global.
type Sharded[K comparable, V any] struct {
	shards   []*Synced[K, V]
	capacity int // total capacity across all shards
}

// NewSharded creates a new sharded cache with the given total capacity spread
// over DefaultShardCount shards. The capacity must be greater than zero.
func NewSharded[K comparable, V any](capacity int, opts ...Option) (*Sharded[K, V], error) {
	return NewShardedWithCount[K, V](capacity, DefaultShardCount, opts...)
}

// MustNewSharded is like [NewSharded] but panics on error.
func MustNewSharded[K comparable, V any](capacity int, opts ...Option) *Sharded[K, V] {
	cache, err := NewSharded[K, V](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return cache
}

// NewShardedWithCount creates a new sharded cache with the given total capacity
// and number of shards. If shardCount exceeds capacity it is reduced to
// capacity so that every shard holds at least one entry. The remainder of an
// uneven split goes to the first shards.
func NewShardedWithCount[K comparable, V any](capacity, shardCount int, opts ...Option) (*Sharded[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if shardCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShardCount, shardCount)
	}
	if shardCount > capacity {
		shardCount = capacity
	}

	perShard := capacity / shardCount
	remainder := capacity % shardCount

	shards := make([]*Synced[K, V], shardCount)
	for i := range shards {
		shardCap := perShard
		if i < remainder {
			shardCap++
		}
		shard, err := NewSynced[K, V](shardCap, opts...)
		if err != nil {
			return nil, err
		}
		shards[i] = shard
	}

	return &Sharded[K, V]{
		shards:   shards,
		capacity: capacity,
	}, nil
}

// MustNewShardedWithCount is like [NewShardedWithCount] but panics on error.
func MustNewShardedWithCount[K comparable, V any](capacity, shardCount int, opts ...Option) *Sharded[K, V] {
	cache, err := NewShardedWithCount[K, V](capacity, shardCount, opts...)
	if err != nil {
		panic(err)
	}
	return cache
}

func (s *Sharded[K, V]) getShard(key K) *Synced[K, V] {
	return s.shards[shardIndex(key, len(s.shards))]
}

// shardIndex hashes key with xxhash and maps it onto n shards.
func shardIndex[K comparable](key K, n int) int {
	if n == 1 {
		return 0
	}

	var h uint64
	var buf [8]byte
	switch k := any(key).(type) {
	case string:
		h = xxhash.Sum64String(k)
	case int:
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(k)))
		h = xxhash.Sum64(buf[:])
	case int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h = xxhash.Sum64(buf[:])
	case int32:
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(k)))
		h = xxhash.Sum64(buf[:])
	case uint:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h = xxhash.Sum64(buf[:])
	case uint64:
		binary.LittleEndian.PutUint64(buf[:], k)
		h = xxhash.Sum64(buf[:])
	case uint32:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h = xxhash.Sum64(buf[:])
	default:
		h = xxhash.Sum64String(fmt.Sprint(key))
	}

	return int(h % uint64(n))
}

// Get retrieves a value by key and marks it as most recently used within its shard.
func (s *Sharded[K, V]) Get(key K) (V, bool) {
	return s.getShard(key).Get(key)
}

// GetOrDefault returns the value for key, promoting it, or def when the key is absent.
func (s *Sharded[K, V]) GetOrDefault(key K, def V) V {
	return s.getShard(key).GetOrDefault(key, def)
}

// Fetch is like [Sharded.Get] but reports a missing key as an error wrapping [ErrKeyNotFound].
func (s *Sharded[K, V]) Fetch(key K) (V, error) {
	return s.getShard(key).Fetch(key)
}

// Peek retrieves a value without updating its position in the LRU list.
func (s *Sharded[K, V]) Peek(key K) (V, bool) {
	return s.getShard(key).Peek(key)
}

// GetOrSet retrieves a value by key, or computes and sets it if not present.
func (s *Sharded[K, V]) GetOrSet(key K, compute func() (V, error)) (V, error) {
	return s.getShard(key).GetOrSet(key, compute)
}

// GetOrSetSingleflight retrieves a value by key, or computes it once for all concurrent callers.
func (s *Sharded[K, V]) GetOrSetSingleflight(key K, compute func() (V, error)) (V, error) {
	return s.getShard(key).GetOrSetSingleflight(key, compute)
}

// GetOrSetContext is like [Sharded.GetOrSetSingleflight] but stops waiting when ctx is done.
func (s *Sharded[K, V]) GetOrSetContext(ctx context.Context, key K, compute func() (V, error)) (V, error) {
	return s.getShard(key).GetOrSetContext(ctx, key, compute)
}

// Set adds or updates an item.
// If the shard is at capacity, the least recently used item in that shard is evicted.
func (s *Sharded[K, V]) Set(key K, value V) {
	s.getShard(key).Set(key, value)
}

// Remove deletes an item by key. It returns whether the key was found and removed.
func (s *Sharded[K, V]) Remove(key K) bool {
	return s.getShard(key).Remove(key)
}

// Contains reports whether key is present without affecting recency order.
func (s *Sharded[K, V]) Contains(key K) bool {
	return s.getShard(key).Contains(key)
}

// Len returns the current number of items across all shards.
func (s *Sharded[K, V]) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// Clear removes all items from all shards.
func (s *Sharded[K, V]) Clear() {
	for _, shard := range s.shards {
		shard.Clear()
	}
}

// Keys returns all keys. Within a shard they run from most to least recently
// used, with shards concatenated in order; there is no global recency order.
func (s *Sharded[K, V]) Keys() []K {
	keys := make([]K, 0, s.Len())
	for _, shard := range s.shards {
		keys = append(keys, shard.Keys()...)
	}
	return keys
}

// All returns an iterator over key-value pairs in the same order as [Sharded.Keys].
// Every shard is copied when iteration starts.
func (s *Sharded[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		snaps := make([][]entry[K, V], len(s.shards))
		for i, shard := range s.shards {
			snaps[i] = shard.snapshot()
		}
		for _, snap := range snaps {
			for _, e := range snap {
				if !yield(e.key, e.val) {
					return
				}
			}
		}
	}
}

// Capacity returns the maximum total capacity.
func (s *Sharded[K, V]) Capacity() int {
	return s.capacity
}

// ShardCount returns the number of shards.
func (s *Sharded[K, V]) ShardCount() int {
	return len(s.shards)
}

// OnEvict sets the eviction callback on every shard.
func (s *Sharded[K, V]) OnEvict(f OnEvictFunc[K, V]) {
	for _, shard := range s.shards {
		shard.OnEvict(f)
	}
}

// OnUpdate sets the update callback on every shard.
func (s *Sharded[K, V]) OnUpdate(f OnUpdateFunc[K, V]) {
	for _, shard := range s.shards {
		shard.OnUpdate(f)
	}
}

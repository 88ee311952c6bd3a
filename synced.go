package lru

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/workhorsy/lru-eviction-queue/metrics"
)

type eventKind uint8

const (
	_ eventKind = iota
	eventEvict
	eventUpdate
)

// event is a callback notification captured while the lock is held.
// A single mutation produces at most one.
type event[K comparable, V any] struct {
	kind eventKind
	key  K
	val  V
}

// Synced is a [Queue] guarded by a single mutex, safe for concurrent use.
//
// Unlike on a bare Queue, callbacks are invoked after the lock is released,
// so they may call back into the cache. They may also run concurrently from
// multiple goroutines and must be safe for concurrent use.
// A Synced must be created with [NewSynced] or [MustNewSynced]; the zero value is not ready for use.
type Synced[K comparable, V any] struct {
	mu       sync.Mutex
	q        *Queue[K, V]
	pending  event[K, V]
	onEvict  OnEvictFunc[K, V]
	onUpdate OnUpdateFunc[K, V]
	logger   *slog.Logger
	recorder metrics.Recorder
	sfGroup  singleflight.Group
}

// NewSynced creates a new concurrency-safe cache with the given capacity.
// The capacity must be greater than zero.
func NewSynced[K comparable, V any](capacity int, opts ...Option) (*Synced[K, V], error) {
	q, err := New[K, V](capacity)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	s := &Synced[K, V]{
		q:        q,
		logger:   o.logger,
		recorder: o.recorder,
	}

	// both hooks run with s.mu held
	q.OnEvict(func(key K, value V) {
		s.pending = event[K, V]{kind: eventEvict, key: key, val: value}
	})
	q.OnUpdate(func(key K, oldValue V) {
		s.pending = event[K, V]{kind: eventUpdate, key: key, val: oldValue}
	})
	return s, nil
}

// MustNewSynced creates a new concurrency-safe cache with the given capacity.
// It panics if the capacity is less than or equal to zero.
func MustNewSynced[K comparable, V any](capacity int, opts ...Option) *Synced[K, V] {
	s, err := NewSynced[K, V](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get retrieves a value by key and marks it as most recently used.
// It returns the value and a boolean indicating whether the key was found.
func (s *Synced[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	val, found := s.q.Get(key)
	s.mu.Unlock()

	s.recordGet(found)
	return val, found
}

// GetOrDefault returns the value for key, promoting it, or def when the key is absent.
func (s *Synced[K, V]) GetOrDefault(key K, def V) V {
	if val, found := s.Get(key); found {
		return val
	}
	return def
}

// Fetch is like [Synced.Get] but reports a missing key as an error wrapping [ErrKeyNotFound].
func (s *Synced[K, V]) Fetch(key K) (V, error) {
	val, found := s.Get(key)
	if !found {
		return val, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return val, nil
}

// Peek retrieves a value without updating its position in the LRU list.
func (s *Synced[K, V]) Peek(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.q.Peek(key)
}

// Contains reports whether key is present without affecting recency order.
func (s *Synced[K, V]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.q.Contains(key)
}

// Set adds or updates an item.
// If the cache is at capacity, the least recently used item is evicted.
func (s *Synced[K, V]) Set(key K, value V) {
	s.mu.Lock()
	ev, delta := s.setLocked(key, value)
	onEvict, onUpdate := s.onEvict, s.onUpdate
	s.mu.Unlock()

	s.finishSet(ev, delta, onEvict, onUpdate)
}

// GetOrSet retrieves a value by key, or computes and sets it if not present.
// The compute function runs outside the lock.
// Note: if multiple goroutines call GetOrSet concurrently for the same missing key,
// compute may be called multiple times but only one result will be cached.
func (s *Synced[K, V]) GetOrSet(key K, compute func() (V, error)) (V, error) {
	if val, found := s.Get(key); found {
		return val, nil
	}

	val, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	return s.storeComputed(key, val), nil
}

// GetOrSetSingleflight is like [Synced.GetOrSet], except that concurrent calls
// for the same missing key share a single compute call and its result.
//
// Calls are grouped by the key's fmt %v representation. When two distinct keys
// print the same, the caller whose key did not run the shared call computes
// its own value instead.
func (s *Synced[K, V]) GetOrSetSingleflight(key K, compute func() (V, error)) (V, error) {
	if val, found := s.Get(key); found {
		return val, nil
	}

	result, err, _ := s.sfGroup.Do(fmt.Sprintf("%v", key), s.flight(key, compute))
	return s.flightResult(key, compute, result, err)
}

// GetOrSetContext is like [Synced.GetOrSetSingleflight], but stops waiting
// when ctx is done. The shared compute call keeps running and still caches its result.
func (s *Synced[K, V]) GetOrSetContext(ctx context.Context, key K, compute func() (V, error)) (V, error) {
	if val, found := s.Get(key); found {
		return val, nil
	}

	ch := s.sfGroup.DoChan(fmt.Sprintf("%v", key), s.flight(key, compute))

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		return s.flightResult(key, compute, res.Val, res.Err)
	}
}

// flighted is what a shared compute call hands to every waiter.
// The key identifies which caller actually ran it.
type flighted[K comparable, V any] struct {
	key K
	val V
}

// flight wraps compute for singleflight. The result always carries key, even on error.
func (s *Synced[K, V]) flight(key K, compute func() (V, error)) func() (any, error) {
	return func() (any, error) {
		// another caller may have cached it while we waited
		s.mu.Lock()
		existing, found := s.q.Get(key)
		s.mu.Unlock()
		if found {
			return flighted[K, V]{key: key, val: existing}, nil
		}

		val, err := compute()
		if err != nil {
			return flighted[K, V]{key: key}, err
		}
		return flighted[K, V]{key: key, val: s.storeComputed(key, val)}, nil
	}
}

// flightResult unpacks a shared call's outcome for key. If the call was run
// for a different key with the same %v form, it computes key's value directly.
func (s *Synced[K, V]) flightResult(key K, compute func() (V, error), result any, err error) (V, error) {
	var zero V
	res, ok := result.(flighted[K, V])
	if !ok || res.key != key {
		val, cerr := compute()
		if cerr != nil {
			return zero, cerr
		}
		return s.storeComputed(key, val), nil
	}
	if err != nil {
		return zero, err
	}
	return res.val, nil
}

// storeComputed caches val unless the key was added while it was being
// computed, in which case the cached value wins. It returns the value that is cached.
func (s *Synced[K, V]) storeComputed(key K, val V) V {
	s.mu.Lock()
	if existing, found := s.q.Get(key); found {
		s.mu.Unlock()
		return existing
	}

	ev, delta := s.setLocked(key, val)
	onEvict, onUpdate := s.onEvict, s.onUpdate
	s.mu.Unlock()

	s.finishSet(ev, delta, onEvict, onUpdate)
	return val
}

// setLocked stores the pair and returns the captured callback event and the
// change in length. It assumes the mutex is already locked.
func (s *Synced[K, V]) setLocked(key K, value V) (event[K, V], int) {
	before := s.q.Len()
	s.q.Set(key, value)
	delta := s.q.Len() - before

	ev := s.pending
	s.pending = event[K, V]{}
	return ev, delta
}

// finishSet records metrics and runs user callbacks. It must be called without the lock held.
func (s *Synced[K, V]) finishSet(ev event[K, V], delta int, onEvict OnEvictFunc[K, V], onUpdate OnUpdateFunc[K, V]) {
	if ev.kind == eventUpdate {
		s.recorder.IncSetUpdate()
	} else {
		s.recorder.IncSetNew()
	}
	s.recorder.AddLen(delta)

	switch ev.kind {
	case eventEvict:
		s.recorder.IncEvicted()
		s.logger.Debug("lru: evicted entry", slog.Any("key", ev.key))
		if onEvict != nil {
			onEvict(ev.key, ev.val)
		}
	case eventUpdate:
		if onUpdate != nil {
			onUpdate(ev.key, ev.val)
		}
	}
}

func (s *Synced[K, V]) recordGet(found bool) {
	if found {
		s.recorder.IncGetHit()
	} else {
		s.recorder.IncGetMiss()
	}
}

// Remove deletes an item by key. No callback is invoked.
// It returns whether the key was found and removed.
func (s *Synced[K, V]) Remove(key K) bool {
	s.mu.Lock()
	removed := s.q.Remove(key)
	s.mu.Unlock()

	if removed {
		s.recorder.IncRemoved()
		s.recorder.AddLen(-1)
	}
	return removed
}

// Clear removes all items. No callback is invoked.
func (s *Synced[K, V]) Clear() {
	s.mu.Lock()
	n := s.q.Len()
	s.q.Clear()
	s.mu.Unlock()

	s.recorder.AddLen(-n)
}

// Keys returns a slice of all keys, from most recently used to least recently used.
func (s *Synced[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.q.Keys()
}

// All returns an iterator over key-value pairs from most recently used to
// least recently used, as of the moment iteration starts.
func (s *Synced[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range s.snapshot() {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

func (s *Synced[K, V]) snapshot() []entry[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.q.snapshot()
}

// Len returns the current number of items.
func (s *Synced[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.q.Len()
}

// Capacity returns the maximum number of items.
func (s *Synced[K, V]) Capacity() int {
	return s.q.Capacity()
}

// OnEvict sets the callback invoked when an entry is evicted to make room for a new key.
func (s *Synced[K, V]) OnEvict(f OnEvictFunc[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onEvict = f
}

// OnUpdate sets the callback invoked with the previous value when an existing key is overwritten.
func (s *Synced[K, V]) OnUpdate(f OnUpdateFunc[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onUpdate = f
}

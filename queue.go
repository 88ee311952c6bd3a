package lru

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrInvalidCapacity is returned when a cache is created with a capacity below one.
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")

	// ErrKeyNotFound is returned by [Queue.Fetch] when the key is not present.
	ErrKeyNotFound = errors.New("key not found")
)

// OnEvictFunc is a function that is called when an entry is evicted to make room for a new one.
type OnEvictFunc[K comparable, V any] func(key K, value V)

// OnUpdateFunc is a function that is called with the previous value when an existing key is overwritten.
type OnUpdateFunc[K comparable, V any] func(key K, oldValue V)

// Queue is a fixed-size LRU eviction queue.
// It is not safe for concurrent use; see [Synced] and [Sharded] for that.
// Callbacks run in-line and must not modify the queue.
// A Queue must be created with [New] or [MustNew]; the zero value is not ready for use.
type Queue[K comparable, V any] struct {
	capacity int
	items    map[K]*entry[K, V]
	head     *entry[K, V] // most recently used
	tail     *entry[K, V] // least recently used
	onEvict  OnEvictFunc[K, V]
	onUpdate OnUpdateFunc[K, V]
}

// entry is an intrusive doubly-linked list node.
type entry[K comparable, V any] struct {
	key  K
	val  V
	prev *entry[K, V]
	next *entry[K, V]
}

// New creates a new queue with the given capacity.
// The capacity must be greater than zero, otherwise the returned error wraps [ErrInvalidCapacity].
func New[K comparable, V any](capacity int) (*Queue[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	return &Queue[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], capacity),
	}, nil
}

// MustNew creates a new queue with the given capacity.
// It panics if the capacity is less than or equal to zero.
func MustNew[K comparable, V any](capacity int) *Queue[K, V] {
	q, err := New[K, V](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// Contains reports whether key is present. It does not affect recency order.
func (q *Queue[K, V]) Contains(key K) bool {
	_, found := q.items[key]
	return found
}

// Set adds or updates an item.
//
// If the key already exists, the update callback receives the old value
// before it is overwritten, and the key becomes the most recently used.
// If the queue is full, the least recently used entry is passed to the evict
// callback while it is still present, and is then removed to make room.
func (q *Queue[K, V]) Set(key K, value V) {
	if e, found := q.items[key]; found {
		if q.onUpdate != nil {
			q.onUpdate(e.key, e.val)
		}
		e.val = value
		q.moveToFront(e)
		return
	}

	if len(q.items) >= q.capacity {
		q.evictOldest()
	}

	e := &entry[K, V]{
		key: key,
		val: value,
	}
	q.pushFront(e)
	q.items[key] = e
}

// evictOldest removes the tail of the list, notifying the evict callback first.
func (q *Queue[K, V]) evictOldest() {
	oldest := q.tail
	if oldest == nil {
		return
	}
	if q.onEvict != nil {
		q.onEvict(oldest.key, oldest.val)
	}
	q.unlink(oldest)
	delete(q.items, oldest.key)
}

// Get retrieves a value by key and marks it as most recently used.
// It returns the value and a boolean indicating whether the key was found.
func (q *Queue[K, V]) Get(key K) (V, bool) {
	e, found := q.items[key]
	if !found {
		var zero V
		return zero, false
	}

	q.moveToFront(e)
	return e.val, true
}

// GetOrDefault returns the value for key, promoting it, or def when the key is absent.
// A miss leaves the queue untouched.
func (q *Queue[K, V]) GetOrDefault(key K, def V) V {
	if val, found := q.Get(key); found {
		return val
	}
	return def
}

// Fetch is like [Queue.Get] but reports a missing key as an error wrapping [ErrKeyNotFound].
func (q *Queue[K, V]) Fetch(key K) (V, error) {
	val, found := q.Get(key)
	if !found {
		return val, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return val, nil
}

// Peek retrieves a value without updating its position in the LRU list.
func (q *Queue[K, V]) Peek(key K) (V, bool) {
	e, found := q.items[key]
	if !found {
		var zero V
		return zero, false
	}
	return e.val, true
}

// GetOrSet retrieves a value by key, or computes and sets it if not present.
// The compute function is only called on a miss, and an error from it leaves the queue unchanged.
func (q *Queue[K, V]) GetOrSet(key K, compute func() (V, error)) (V, error) {
	if val, found := q.Get(key); found {
		return val, nil
	}

	val, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	q.Set(key, val)
	return val, nil
}

// Remove deletes an item by key without invoking any callback.
// It returns whether the key was found and removed.
func (q *Queue[K, V]) Remove(key K) bool {
	e, found := q.items[key]
	if !found {
		return false
	}

	delete(q.items, key)
	q.unlink(e)
	return true
}

// Clear removes all items without invoking any callback.
func (q *Queue[K, V]) Clear() {
	q.items = make(map[K]*entry[K, V], q.capacity)
	q.head = nil
	q.tail = nil
}

// Keys returns a slice of all keys, from most recently used to least recently used.
func (q *Queue[K, V]) Keys() []K {
	keys := make([]K, 0, len(q.items))
	for e := q.head; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// All returns an iterator over key-value pairs from most recently used to
// least recently used. The pairs are copied when iteration starts, so changes
// made to the queue inside the loop are not observed by it.
func (q *Queue[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range q.snapshot() {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

func (q *Queue[K, V]) snapshot() []entry[K, V] {
	out := make([]entry[K, V], 0, len(q.items))
	for e := q.head; e != nil; e = e.next {
		out = append(out, entry[K, V]{key: e.key, val: e.val})
	}
	return out
}

// Len returns the current number of items.
func (q *Queue[K, V]) Len() int {
	return len(q.items)
}

// Capacity returns the maximum number of items.
func (q *Queue[K, V]) Capacity() int {
	return q.capacity
}

// OnEvict sets the callback invoked when an entry is evicted to make room
// for a new key. Explicit [Queue.Remove] and [Queue.Clear] never call it.
// Passing nil removes the callback.
func (q *Queue[K, V]) OnEvict(f OnEvictFunc[K, V]) {
	q.onEvict = f
}

// OnUpdate sets the callback invoked with the previous value when [Queue.Set]
// overwrites an existing key. Passing nil removes the callback.
func (q *Queue[K, V]) OnUpdate(f OnUpdateFunc[K, V]) {
	q.onUpdate = f
}

// moveToFront moves an entry to the front of the list.
func (q *Queue[K, V]) moveToFront(e *entry[K, V]) {
	if q.head == e {
		return
	}
	q.unlink(e)
	q.pushFront(e)
}

// pushFront adds an entry to the front of the list.
func (q *Queue[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = q.head
	if q.head != nil {
		q.head.prev = e
	}
	q.head = e
	if q.tail == nil {
		q.tail = e
	}
}

// unlink removes an entry from the list.
func (q *Queue[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		q.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		q.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

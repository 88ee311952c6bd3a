// Package lru provides a generic, fixed-capacity LRU eviction queue.
//
// Three types share the same method set:
//
//   - [Queue]: the core container. Not safe for concurrent use.
//   - [Synced]: a Queue behind a single mutex.
//   - [Sharded]: keys spread over several Synced shards to reduce contention.
//
// # Basic Usage
//
//	q := lru.MustNew[string, int](100)
//	q.Set("key", 42)
//	value, found := q.Get("key")
//	other := q.GetOrDefault("missing", -1)
//
// Reads through Get, GetOrDefault and Fetch mark the key as most recently
// used. Peek and Contains do not.
//
// # Callbacks
//
// Two callbacks can be registered:
//
//	q.OnEvict(func(key string, value int) {
//	    fmt.Printf("evicted: %s=%d\n", key, value)
//	})
//	q.OnUpdate(func(key string, old int) {
//	    fmt.Printf("replaced: %s=%d\n", key, old)
//	})
//
// OnEvict fires only when Set pushes the least recently used entry out to make
// room, and it sees the entry before it is removed. OnUpdate fires when Set
// overwrites an existing key, with the value being replaced. A single Set fires
// at most one of them. [Queue.Remove] and [Queue.Clear] never fire either.
//
// On a Queue, callbacks run in-line and must not modify the queue. Synced and
// Sharded run them after releasing their locks, so by the time a callback runs
// the mutation is complete: an evicted entry is already gone and an updated key
// already holds its new value.
//
// # Iteration
//
// [Queue.All] ranges over key-value pairs from most to least recently used.
// The pairs are copied when the loop starts:
//
//	for key, value := range q.All() {
//	    fmt.Println(key, value)
//	}
//
// # Memoization
//
//	result, err := cache.GetOrSetSingleflight("key", func() (int, error) {
//	    return expensiveComputation()
//	})
//
// # Metrics and logging
//
// Synced and Sharded accept [WithRecorder] to report events to a
// [metrics.Recorder], and [WithLogger] to log evictions at debug level.
package lru

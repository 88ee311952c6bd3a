package lru

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireConsistent checks that the map and the list agree.
func requireConsistent[K comparable, V any](r *require.Assertions, q *Queue[K, V]) {
	seen := make(map[K]struct{}, len(q.items))
	var prev *entry[K, V]
	for e := q.head; e != nil; e = e.next {
		r.True(e.prev == prev, "broken back link at %v", e.key)
		_, dup := seen[e.key]
		r.False(dup, "duplicate key %v in order", e.key)
		seen[e.key] = struct{}{}
		r.Same(e, q.items[e.key])
		prev = e
	}
	r.True(q.tail == prev, "tail is not the last node")
	r.Len(seen, len(q.items))
	r.LessOrEqual(q.Len(), q.Capacity())
	r.Len(q.Keys(), q.Len())
}

func TestQueue_New(t *testing.T) {
	tests := map[string]struct {
		capacity    int
		expectError bool
	}{
		"valid capacity": {
			capacity:    5,
			expectError: false,
		},
		"capacity of one": {
			capacity:    1,
			expectError: false,
		},
		"zero capacity": {
			capacity:    0,
			expectError: true,
		},
		"negative capacity": {
			capacity:    -1,
			expectError: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			q, err := New[string, int](tc.capacity)
			if tc.expectError {
				r.ErrorIs(err, ErrInvalidCapacity)
				r.Nil(q)
			} else {
				r.NoError(err)
				r.NotNil(q)
				r.Equal(tc.capacity, q.Capacity())
				r.Zero(q.Len())
			}
		})
	}
}

func TestQueue_MustNew(t *testing.T) {
	r := require.New(t)

	r.NotPanics(func() { MustNew[string, int](3) })
	r.PanicsWithError("capacity must be greater than zero: 0", func() {
		MustNew[string, int](0)
	})
}

func TestQueue_InsertionOrder(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)

	q.Set("1", 1)
	q.Set("2", 2)
	q.Set("3", 3)

	r.Equal([]string{"3", "2", "1"}, q.Keys())
	requireConsistent(r, q)
}

func TestQueue_EvictsLeastRecentlyUsed(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)

	var evicted []string
	q.OnEvict(func(key string, _ int) {
		evicted = append(evicted, key)
	})

	q.Set("1", 1)
	q.Set("2", 2)
	q.Set("3", 3)
	q.Set("4", 4)

	r.Equal([]string{"4", "3", "2"}, q.Keys())
	r.Equal([]string{"1"}, evicted)
	r.Equal(3, q.Len())
	requireConsistent(r, q)
}

func TestQueue_GetPromotes(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](4)

	for i := 1; i <= 4; i++ {
		q.Set(fmt.Sprint(i), i)
	}

	r.Equal(2, q.GetOrDefault("2", -1))
	r.Equal([]string{"2", "4", "3", "1"}, q.Keys())
	requireConsistent(r, q)
}

func TestQueue_GetOrDefault(t *testing.T) {
	tests := map[string]struct {
		key      string
		want     int
		wantKeys []string
	}{
		"hit promotes": {
			key:      "a",
			want:     1,
			wantKeys: []string{"a", "c", "b"},
		},
		"head stays head": {
			key:      "c",
			want:     3,
			wantKeys: []string{"c", "b", "a"},
		},
		"miss returns default and leaves order alone": {
			key:      "z",
			want:     -1,
			wantKeys: []string{"c", "b", "a"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			q := MustNew[string, int](3)
			q.Set("a", 1)
			q.Set("b", 2)
			q.Set("c", 3)

			r.Equal(tc.want, q.GetOrDefault(tc.key, -1))
			r.Equal(tc.wantKeys, q.Keys())
			r.Equal(3, q.Len())
		})
	}
}

func TestQueue_GetSet(t *testing.T) {
	tests := map[string]struct {
		operations []func(q *Queue[string, int])
		want       map[string]int
	}{
		"basic set and get": {
			operations: []func(q *Queue[string, int]){
				func(q *Queue[string, int]) { q.Set("a", 1) },
				func(q *Queue[string, int]) { q.Set("b", 2) },
				func(q *Queue[string, int]) { q.Set("c", 3) },
			},
			want: map[string]int{"a": 1, "b": 2, "c": 3},
		},
		"overwrite value": {
			operations: []func(q *Queue[string, int]){
				func(q *Queue[string, int]) { q.Set("a", 1) },
				func(q *Queue[string, int]) { q.Set("a", 5) },
			},
			want: map[string]int{"a": 5},
		},
		"get affects LRU order": {
			operations: []func(q *Queue[string, int]){
				func(q *Queue[string, int]) { q.Set("a", 1) },
				func(q *Queue[string, int]) { q.Set("b", 2) },
				func(q *Queue[string, int]) { q.Set("c", 3) },
				func(q *Queue[string, int]) { _, _ = q.Get("a") }, // move "a" to front
				func(q *Queue[string, int]) { q.Set("d", 4) },     // should evict "b" now
			},
			want: map[string]int{"a": 1, "c": 3, "d": 4},
		},
		"peek does not affect LRU order": {
			operations: []func(q *Queue[string, int]){
				func(q *Queue[string, int]) { q.Set("a", 1) },
				func(q *Queue[string, int]) { q.Set("b", 2) },
				func(q *Queue[string, int]) { q.Set("c", 3) },
				func(q *Queue[string, int]) { _, _ = q.Peek("a") },
				func(q *Queue[string, int]) { _ = q.Contains("a") },
				func(q *Queue[string, int]) { q.Set("d", 4) }, // still evicts "a"
			},
			want: map[string]int{"b": 2, "c": 3, "d": 4},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			q := MustNew[string, int](3)
			for _, op := range tc.operations {
				op(q)
			}
			requireConsistent(r, q)

			for k, v := range tc.want {
				got, found := q.Peek(k)
				r.True(found, "key %s should be present", k)
				r.Equal(v, got, "value for key %s", k)
			}
			r.Equal(len(tc.want), q.Len())
		})
	}
}

func TestQueue_Peek(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)
	q.Set("a", 1)
	q.Set("b", 2)

	val, found := q.Peek("a")
	r.True(found)
	r.Equal(1, val)
	r.Equal([]string{"b", "a"}, q.Keys())

	val, found = q.Peek("z")
	r.False(found)
	r.Zero(val)
}

func TestQueue_Contains(t *testing.T) {
	r := require.New(t)
	q := MustNew[int, string](2)
	q.Set(1, "one")
	q.Set(2, "two")

	r.True(q.Contains(1))
	r.False(q.Contains(3))
	r.Equal([]int{2, 1}, q.Keys())
}

func TestQueue_Fetch(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](2)
	q.Set("a", 1)
	q.Set("b", 2)

	val, err := q.Fetch("a")
	r.NoError(err)
	r.Equal(1, val)
	r.Equal([]string{"a", "b"}, q.Keys())

	_, err = q.Fetch("missing")
	r.ErrorIs(err, ErrKeyNotFound)
	r.ErrorContains(err, "missing")
}

func TestQueue_Remove(t *testing.T) {
	tests := map[string]struct {
		toRemove string
		want     bool
		wantKeys []string
	}{
		"remove head": {
			toRemove: "c",
			want:     true,
			wantKeys: []string{"b", "a"},
		},
		"remove middle": {
			toRemove: "b",
			want:     true,
			wantKeys: []string{"c", "a"},
		},
		"remove tail": {
			toRemove: "a",
			want:     true,
			wantKeys: []string{"c", "b"},
		},
		"remove non-existent key": {
			toRemove: "z",
			want:     false,
			wantKeys: []string{"c", "b", "a"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			q := MustNew[string, int](3)
			callbacks := 0
			q.OnEvict(func(string, int) { callbacks++ })
			q.OnUpdate(func(string, int) { callbacks++ })
			q.Set("a", 1)
			q.Set("b", 2)
			q.Set("c", 3)

			r.Equal(tc.want, q.Remove(tc.toRemove))
			r.Equal(tc.wantKeys, q.Keys())
			r.False(q.Contains(tc.toRemove))
			r.Zero(callbacks)
			requireConsistent(r, q)
		})
	}
}

func TestQueue_RemoveThenRefill(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](2)

	evicted := 0
	q.OnEvict(func(string, int) { evicted++ })

	q.Set("a", 1)
	q.Set("b", 2)
	q.Remove("a")
	q.Set("c", 3) // room was freed, so nothing is evicted

	r.Zero(evicted)
	r.Equal([]string{"c", "b"}, q.Keys())
	requireConsistent(r, q)
}

func TestQueue_Clear(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)

	callbacks := 0
	q.OnEvict(func(string, int) { callbacks++ })
	q.OnUpdate(func(string, int) { callbacks++ })

	q.Set("a", 1)
	q.Set("b", 2)
	q.Clear()

	r.Zero(q.Len())
	r.Empty(q.Keys())
	r.False(q.Contains("a"))
	r.Zero(callbacks)

	// still usable after clear
	q.Set("c", 3)
	r.Equal([]string{"c"}, q.Keys())
	requireConsistent(r, q)
}

func TestQueue_CapacityOne(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](1)

	var evicted []string
	q.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	q.Set("a", 1)
	q.Set("a", 2)
	q.Set("b", 3)

	r.Equal([]string{"a"}, evicted)
	r.Equal([]string{"b"}, q.Keys())
	r.Equal(3, q.GetOrDefault("b", 0))
	requireConsistent(r, q)
}

func TestQueue_GetOrSet(t *testing.T) {
	tests := map[string]struct {
		setup       map[string]int
		key         string
		computeFunc func() (int, error)
		want        int
		wantErr     bool
		wantCached  bool
	}{
		"key exists": {
			setup:       map[string]int{"a": 1},
			key:         "a",
			computeFunc: func() (int, error) { return 0, errors.New("should not be called") },
			want:        1,
			wantCached:  true,
		},
		"key does not exist": {
			setup:       map[string]int{},
			key:         "a",
			computeFunc: func() (int, error) { return 42, nil },
			want:        42,
			wantCached:  true,
		},
		"compute error": {
			setup:       map[string]int{},
			key:         "a",
			computeFunc: func() (int, error) { return 0, errors.New("compute failed") },
			wantErr:     true,
			wantCached:  false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			q := MustNew[string, int](3)
			for k, v := range tc.setup {
				q.Set(k, v)
			}

			got, err := q.GetOrSet(tc.key, tc.computeFunc)
			if tc.wantErr {
				r.Error(err)
			} else {
				r.NoError(err)
				r.Equal(tc.want, got)
			}
			r.Equal(tc.wantCached, q.Contains(tc.key))
		})
	}
}

func TestQueue_All(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)
	q.Set("a", 1)
	q.Set("b", 2)
	q.Set("c", 3)

	var keys []string
	var vals []int
	for k, v := range q.All() {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	r.Equal([]string{"c", "b", "a"}, keys)
	r.Equal([]int{3, 2, 1}, vals)

	// iteration alone must not promote anything
	r.Equal([]string{"c", "b", "a"}, q.Keys())
}

func TestQueue_AllStopsEarly(t *testing.T) {
	r := require.New(t)
	q := MustNew[int, int](5)
	for i := 0; i < 5; i++ {
		q.Set(i, i)
	}

	var seen []int
	for k := range q.All() {
		seen = append(seen, k)
		if len(seen) == 2 {
			break
		}
	}
	r.Equal([]int{4, 3}, seen)
}

func TestQueue_AllIsSnapshot(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)
	q.Set("a", 1)
	q.Set("b", 2)
	q.Set("c", 3)

	var keys []string
	for k := range q.All() {
		keys = append(keys, k)
		q.Set("x"+k, 0)
		q.Remove("a")
	}
	r.Equal([]string{"c", "b", "a"}, keys)
	requireConsistent(r, q)
}

func TestQueue_KeysIsSnapshot(t *testing.T) {
	r := require.New(t)
	q := MustNew[string, int](3)
	q.Set("a", 1)
	q.Set("b", 2)

	keys := q.Keys()
	q.Set("c", 3)
	q.Remove("a")
	r.Equal([]string{"b", "a"}, keys)
}

// TestQueue_RandomOperations drives a long mixed sequence and checks the
// structural invariants after every call.
func TestQueue_RandomOperations(t *testing.T) {
	r := require.New(t)
	q := MustNew[int, int](8)

	for i := 0; i < 2000; i++ {
		key := (i * 7919) % 23
		switch i % 5 {
		case 0, 1:
			q.Set(key, i)
			r.Equal(key, q.Keys()[0])
		case 2:
			if _, found := q.Get(key); found {
				r.Equal(key, q.Keys()[0])
			}
		case 3:
			q.Remove(key)
			r.False(q.Contains(key))
		case 4:
			q.Peek(key)
		}
		requireConsistent(r, q)
	}
}

package assetram

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// memoryStore is the in-process backend. Entries are written once and never
// evicted; size only grows.
type memoryStore struct {
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[Key]any
	size    atomic.Int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[Key]any)}
}

func (m *memoryStore) load(key Key) (any, bool) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	return v, ok
}

// fetch returns the stored value for key, or runs compute once and stores it.
// Concurrent misses on one key share a single compute. onStore runs exactly
// once per inserted entry, after the counter is updated.
func (m *memoryStore) fetch(key Key, compute func() (any, error), onStore func(bytes int, total int64)) (v any, hit bool, err error) {
	// Fast path: already cached.
	if v, ok := m.load(key); ok {
		return v, true, nil
	}

	var computed bool
	v, err, _ = m.group.Do(key.flightKey(), func() (any, error) {
		// Another goroutine may have stored it while we waited.
		if v, ok := m.load(key); ok {
			return v, nil
		}

		v, err := compute()
		if err != nil {
			return nil, err
		}

		n := textLen(v)
		m.mu.Lock()
		m.entries[key] = v
		m.mu.Unlock()

		total := m.size.Add(int64(n))
		computed = true
		if onStore != nil {
			onStore(n, total)
		}
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	// Callers that joined an in-flight compute saw a miss but did not run it.
	return v, !computed, nil
}

func (m *memoryStore) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryStore) reset() {
	m.mu.Lock()
	m.entries = make(map[Key]any)
	m.mu.Unlock()
	m.size.Store(0)
}

// textLen is the byte length of v's textual form. fmt.Sprint renders
// Stringers and turns a nil-receiver String panic into "<nil>".
func textLen(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return len(x)
	case []byte:
		return len(x)
	default:
		return len(fmt.Sprint(x))
	}
}

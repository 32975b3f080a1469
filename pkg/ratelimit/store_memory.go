package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory WindowStore.
//
// Every operation runs under a single mutex, so Increment is atomic per key
// and across keys. The store bounds its size with MaxKeys; when a new key
// would exceed it, the least recently used 10% of keys are evicted.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*list.Element
	lru     *list.List // front = most recently used
	maxKeys int
	metrics Metrics
}

// memoryEntry is the value stored in the LRU list.
type memoryEntry struct {
	key     string
	counter WindowCounter
}

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys is the maximum number of windows kept in memory.
	// Default: 10000
	MaxKeys int

	// Metrics receives eviction counts.
	// Default: NoOpMetrics
	Metrics Metrics
}

// NewMemoryStore creates a new in-memory window store.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpMetrics()
	}

	return &MemoryStore{
		windows: make(map[string]*list.Element),
		lru:     list.New(),
		maxKeys: config.MaxKeys,
		metrics: config.Metrics,
	}
}

// Increment applies one request to key's window, resetting the window first
// when it is missing or has ended at now.
func (s *MemoryStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (WindowCounter, error) {
	if err := ctx.Err(); err != nil {
		return WindowCounter{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.windows[key]
	if !exists {
		if len(s.windows) >= s.maxKeys {
			s.evictLRU()
		}
		elem = s.lru.PushFront(&memoryEntry{
			key:     key,
			counter: WindowCounter{ResetAt: now.Add(window)},
		})
		s.windows[key] = elem
	} else {
		s.lru.MoveToFront(elem)
	}

	entry := elem.Value.(*memoryEntry)
	if entry.counter.Expired(now) {
		entry.counter = WindowCounter{Count: 0, ResetAt: now.Add(window)}
	}
	entry.counter.Count++

	return entry.counter, nil
}

// Peek returns key's live window without counting a request.
func (s *MemoryStore) Peek(ctx context.Context, key string, now time.Time) (WindowCounter, bool, error) {
	if err := ctx.Err(); err != nil {
		return WindowCounter{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.windows[key]
	if !exists {
		return WindowCounter{}, false, nil
	}
	counter := elem.Value.(*memoryEntry).counter
	if counter.Expired(now) {
		return WindowCounter{}, false, nil
	}
	return counter, true, nil
}

// Sweep removes every window that has ended at now.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, elem := range s.windows {
		if elem.Value.(*memoryEntry).counter.Expired(now) {
			s.lru.Remove(elem)
			delete(s.windows, key)
			removed++
		}
	}
	return removed, nil
}

// KeyCount returns the number of windows currently tracked.
func (s *MemoryStore) KeyCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows), nil
}

// evictLRU drops the least recently used 10% of keys (at least one).
//
// Must be called with s.mu held.
func (s *MemoryStore) evictLRU() {
	evictCount := s.maxKeys / 10
	if evictCount < 1 {
		evictCount = 1
	}

	evicted := 0
	for evicted < evictCount {
		back := s.lru.Back()
		if back == nil {
			break
		}
		s.lru.Remove(back)
		delete(s.windows, back.Value.(*memoryEntry).key)
		evicted++
	}

	if evicted > 0 {
		s.metrics.RecordEviction(evicted)
	}
}

var _ WindowStore = (*MemoryStore)(nil)

// Package cache provides the key-value store backing the query cache.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is a key-value cache with get/set semantics. Implementations
// are best-effort: a Set failure must never be treated as fatal by
// callers, and a Get may miss at any time.
type Store interface {
	// Get returns the cached value for key, and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Memory is a mutex-guarded TTL LRU cache. Entries expire after the
// configured TTL and the least recently used entries are evicted once
// the capacity is exceeded.
type Memory struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
}

type entry struct {
	key   string
	value []byte
	exp   time.Time
}

// NewMemory creates an in-process cache holding at most maxEntries
// values for up to ttl each.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{
		cap:   maxEntries,
		ttl:   ttl,
		ll:    list.New(),
		items: make(map[string]*list.Element, maxEntries),
	}
}

// Get returns the value for key if present and unexpired. An empty
// value stored via Set is still a present entry.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}

	en := el.Value.(entry)
	if time.Now().After(en.exp) {
		m.ll.Remove(el)
		delete(m.items, key)
		return nil, false, nil
	}

	m.ll.MoveToFront(el)
	return en.value, true, nil
}

// Set stores value under key, refreshing its TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := time.Now().Add(m.ttl)
	if el, ok := m.items[key]; ok {
		el.Value = entry{key: key, value: value, exp: exp}
		m.ll.MoveToFront(el)
		return nil
	}

	el := m.ll.PushFront(entry{key: key, value: value, exp: exp})
	m.items[key] = el

	// Evict over capacity, then sweep expired entries off the tail.
	for m.ll.Len() > m.cap {
		m.removeTail()
	}
	for {
		t := m.ll.Back()
		if t == nil || time.Now().Before(t.Value.(entry).exp) {
			break
		}
		m.removeTail()
	}

	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *Memory) removeTail() {
	t := m.ll.Back()
	if t == nil {
		return
	}
	m.ll.Remove(t)
	delete(m.items, t.Value.(entry).key)
}

package rewind

import (
	"container/list"
	"context"
	"sync"
)

type (
	// MemorySerializer keeps persisted histories in process memory,
	// bounded to a maximum number of identifiers with LRU eviction.
	// Useful for tests and for bounded scratch persistence
	MemorySerializer struct {
		entries map[string]*list.Element
		lru     *list.List
		maxSize int
		mu      sync.RWMutex
	}

	memoryEntry struct {
		key  string
		data []byte
	}
)

// DefaultMemoryCapacity bounds a MemorySerializer when no capacity is
// given
const DefaultMemoryCapacity = 4096

func NewMemorySerializer(maxSize int) *MemorySerializer {
	if maxSize <= 0 {
		maxSize = DefaultMemoryCapacity
	}
	return &MemorySerializer{
		entries: map[string]*list.Element{},
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (m *MemorySerializer) Save(_ context.Context, id StackID, h History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := JoinKey(id)
	if elem, ok := m.entries[key]; ok {
		elem.Value.(*memoryEntry).data = data
		m.lru.MoveToFront(elem)
		return nil
	}

	elem := m.lru.PushFront(&memoryEntry{key: key, data: data})
	m.entries[key] = elem
	if m.lru.Len() > m.maxSize {
		m.evictLast()
	}
	return nil
}

func (m *MemorySerializer) Load(
	_ context.Context, id StackID,
) (History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[JoinKey(id)]
	if !ok {
		return nil, ErrHistoryNotFound
	}
	m.lru.MoveToFront(elem)
	return decodeHistory(elem.Value.(*memoryEntry).data)
}

// Len returns the number of identifiers currently held
func (m *MemorySerializer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lru.Len()
}

func (m *MemorySerializer) evictLast() {
	back := m.lru.Back()
	if back != nil {
		m.lru.Remove(back)
		delete(m.entries, back.Value.(*memoryEntry).key)
	}
}

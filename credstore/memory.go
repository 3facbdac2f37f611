package credstore

import "sync"

// MemoryStore 是基于内存的 Store ，进程退出后数据丢失。可用于测试或不需要持久化的场景。
// 零值不可用，使用 NewMemoryStore 创建。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ EntryStore = (*MemoryStore)(nil)

// NewMemoryStore 创建一个空的 MemoryStore 。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

// Set 实现 Store.Set 。值会被复制。
func (s *MemoryStore) Set(key string, value []byte, access Accessibility) bool {
	if !access.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	s.entries[key] = Entry{
		Key:           key,
		Value:         cloneBytes(value),
		Accessibility: access,
	}
	return true
}

// Get 实现 Store.Get 。返回的是值的副本。
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	e, ok := s.Entry(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Entry 实现 EntryStore.Entry 。
func (s *MemoryStore) Entry(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	e.Value = cloneBytes(e.Value)
	return e, true
}

// Delete 实现 Store.Delete 。
func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return true
}

// Clear 实现 Store.Clear 。
func (s *MemoryStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	return true
}

// Len 返回当前存储的条目个数。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

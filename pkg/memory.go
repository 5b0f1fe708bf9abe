package pkg

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/treemap"
)

// KeyValue is a single stored key and its value.
type KeyValue struct {
	Key   int `json:"key"`
	Value int `json:"value"`
}

// MemoryStorage is an ordered in-memory key/value store.
// Keys iterate in ascending order. All operations are thread-safe.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   *treemap.Map
	closed atomic.Bool

	// Metrics for monitoring
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	moves   atomic.Int64
}

// NewMemoryStorage creates a new, empty storage instance.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: treemap.NewWithIntComparator(),
	}
}

// Get retrieves the value associated with the given key.
// Returns ErrKeyNotFound if the key doesn't exist.
func (ms *MemoryStorage) Get(key int) (int, error) {
	if ms.closed.Load() {
		return 0, ErrStorageUnavailable
	}

	ms.mu.RLock()
	value, found := ms.data.Get(key)
	ms.mu.RUnlock()

	if !found {
		ms.misses.Add(1)
		return 0, ErrKeyNotFound
	}

	ms.hits.Add(1)
	return value.(int), nil
}

// Set stores a value, overwriting any previous value for the key.
func (ms *MemoryStorage) Set(key, value int) error {
	if ms.closed.Load() {
		return ErrStorageUnavailable
	}

	ms.mu.Lock()
	ms.data.Put(key, value)
	ms.mu.Unlock()

	ms.sets.Add(1)
	return nil
}

// SetMultiple stores several pairs under one lock acquisition.
func (ms *MemoryStorage) SetMultiple(items []KeyValue) error {
	if ms.closed.Load() {
		return ErrStorageUnavailable
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, kv := range items {
		ms.data.Put(kv.Key, kv.Value)
		ms.sets.Add(1)
	}
	return nil
}

// Delete removes the key and reports whether it was present.
// No error is returned if the key doesn't exist.
func (ms *MemoryStorage) Delete(key int) (bool, error) {
	if ms.closed.Load() {
		return false, ErrStorageUnavailable
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, found := ms.data.Get(key); !found {
		return false, nil
	}
	ms.data.Remove(key)
	ms.deletes.Add(1)
	return true, nil
}

// Len returns the number of stored keys.
func (ms *MemoryStorage) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.data.Size()
}

// GetAll returns every pair in ascending key order.
func (ms *MemoryStorage) GetAll() ([]KeyValue, error) {
	if ms.closed.Load() {
		return nil, ErrStorageUnavailable
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]KeyValue, 0, ms.data.Size())
	it := ms.data.Iterator()
	for it.Next() {
		result = append(result, KeyValue{Key: it.Key().(int), Value: it.Value().(int)})
	}
	return result, nil
}

// TakeMatching removes and returns, in ascending key order, every pair whose
// key satisfies match. The scan and the removal happen under one lock.
func (ms *MemoryStorage) TakeMatching(match func(key int) bool) ([]KeyValue, error) {
	if ms.closed.Load() {
		return nil, ErrStorageUnavailable
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	var taken []KeyValue
	it := ms.data.Iterator()
	for it.Next() {
		key := it.Key().(int)
		if match(key) {
			taken = append(taken, KeyValue{Key: key, Value: it.Value().(int)})
		}
	}

	// Remove after iterating so the iterator never sees a mutated tree
	for _, kv := range taken {
		ms.data.Remove(kv.Key)
	}
	ms.moves.Add(int64(len(taken)))
	return taken, nil
}

// TakeAll removes and returns every pair in ascending key order.
func (ms *MemoryStorage) TakeAll() ([]KeyValue, error) {
	return ms.TakeMatching(func(int) bool { return true })
}

// Clear removes all entries from storage but keeps it operational.
func (ms *MemoryStorage) Clear() error {
	if ms.closed.Load() {
		return ErrStorageUnavailable
	}

	ms.mu.Lock()
	ms.data.Clear()
	ms.mu.Unlock()

	return nil
}

// Close releases the storage. Later calls fail with ErrStorageUnavailable.
func (ms *MemoryStorage) Close() error {
	if !ms.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	ms.mu.Lock()
	ms.data.Clear()
	ms.mu.Unlock()

	return nil
}

// Stats returns current storage statistics.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Moves   int64 `json:"moves"`
}

// GetStats returns current storage statistics.
func (ms *MemoryStorage) GetStats() Stats {
	return Stats{
		Entries: ms.Len(),
		Hits:    ms.hits.Load(),
		Misses:  ms.misses.Load(),
		Sets:    ms.sets.Load(),
		Deletes: ms.deletes.Load(),
		Moves:   ms.moves.Load(),
	}
}

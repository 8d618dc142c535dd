package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps deadlines in process memory. Deadlines are lost on
// restart.
type MemoryStore struct {
	mu        sync.RWMutex
	deadlines map[string]int64
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deadlines: make(map[string]int64)}
}

func (m *MemoryStore) LoadDeadline(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unix, ok := m.deadlines[key]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func (m *MemoryStore) StoreDeadline(_ context.Context, key string, resetAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deadlines[key] = resetAt.Unix()
	return nil
}

func (m *MemoryStore) ClearDeadline(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deadlines, key)
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

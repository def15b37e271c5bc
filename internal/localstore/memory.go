package localstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. FailWrites and FailReads let tests
// simulate a broken disk.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string

	FailReads  error
	FailWrites error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return "", false, m.FailReads
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.data, key)
	return nil
}

// SetFailures changes the injected failures under the store lock.
func (m *Memory) SetFailures(read, write error) {
	m.mu.Lock()
	m.FailReads = read
	m.FailWrites = write
	m.mu.Unlock()
}

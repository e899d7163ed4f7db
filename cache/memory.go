package cache

import (
	"bytes"
	"context"
	"sync"
)

// Memory is an in-process [Store]. The zero value is not usable; call
// [NewMemory].
type Memory struct {
	mu      sync.RWMutex
	gen     uint64
	entries map[string][]byte
}

// NewMemory returns an empty in-process store at generation 0.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Generation(context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen, nil
}

func (m *Memory) Get(_ context.Context, fingerprint string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (m *Memory) PutIf(_ context.Context, generation uint64, fingerprint string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.gen {
		return false, nil
	}
	m.entries[fingerprint] = bytes.Clone(value)
	return true, nil
}

// InvalidateAll swaps in an empty map and advances the generation under the
// write lock.
func (m *Memory) InvalidateAll(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.entries = make(map[string][]byte)
	return m.gen, nil
}

// Len returns the number of entries in the current generation.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size-bounded in-process [Store]. Once full, the least recently
// read fingerprint is evicted. Eviction only drops entries from the current
// generation and never changes it.
type LRU struct {
	mu      sync.Mutex
	gen     uint64
	entries *lru.Cache[string, []byte]
}

// NewLRU returns an empty store holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU{entries: entries}, nil
}

func (l *LRU) Generation(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen, nil
}

func (l *LRU) Get(_ context.Context, fingerprint string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.entries.Get(fingerprint)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (l *LRU) PutIf(_ context.Context, generation uint64, fingerprint string, value []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if generation != l.gen {
		return false, nil
	}
	l.entries.Add(fingerprint, bytes.Clone(value))
	return true, nil
}

func (l *LRU) InvalidateAll(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.entries.Purge()
	return l.gen, nil
}

// Len returns the number of entries in the current generation.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}

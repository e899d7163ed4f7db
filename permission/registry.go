package permission

import (
	"errors"
	"strings"
	"sync"
)

const maxPermissions = 64

// Registry maps permission names to bit positions within a [Mask64].
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName [maxPermissions]string
	frozen    bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nameToBit: make(map[string]int)}
}

// Register assigns the next free bit to name and returns it. Names are
// case-insensitive. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}
	if name == "" {
		return -1, errors.New("permission name cannot be empty")
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, errors.New("permission already registered")
	}

	next := len(r.nameToBit)
	if next >= maxPermissions {
		return -1, errors.New("permission limit exceeded")
	}

	r.nameToBit[name] = next
	r.bitToName[next] = name
	return next, nil
}

// Bit returns the bit index for the named permission, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[strings.ToLower(strings.TrimSpace(name))]
	return bit, ok
}

// Names expands mask into permission names in bit order.
func (r *Registry) Names(mask Mask64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, mask.Len())
	for bit := 0; bit < len(r.nameToBit); bit++ {
		if mask.Has(bit) {
			out = append(out, r.bitToName[bit])
		}
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

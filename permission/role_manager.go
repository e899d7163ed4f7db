package permission

import (
	"errors"
	"strings"
	"sync"
)

const rolePrefix = "ROLE_"

// NormalizeRole returns the canonical form of role: trimmed, upper-case,
// without a "ROLE_" prefix.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, rolePrefix)
}

// RoleManager holds the set of known roles and the permissions each grants.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewRoleManager returns a manager resolving permission names through registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole declares roleName with the given permissions. Every permission
// must already be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames ...string) error {
	roleName = NormalizeRole(roleName)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// Known reports whether role has been registered.
func (rm *RoleManager) Known(role string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[NormalizeRole(role)]
	return ok
}

// Mask returns the union of permissions granted by roles. Unknown roles
// contribute nothing.
func (rm *RoleManager) Mask(roles []string) Mask64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var out Mask64
	for _, role := range roles {
		out = out.Union(rm.roles[NormalizeRole(role)])
	}
	return out
}

// Allows reports whether any of roles grants permission.
func (rm *RoleManager) Allows(roles []string, permission string) bool {
	bit, ok := rm.registry.Bit(permission)
	if !ok {
		return false
	}
	return rm.Mask(roles).Has(bit)
}

// Permissions lists the permission names granted by roles.
func (rm *RoleManager) Permissions(roles []string) []string {
	return rm.registry.Names(rm.Mask(roles))
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}

// Package permission provides role-name normalization, a permission
// registry, and role composition helpers used by goCatalog authorization
// checks.
//
// Roles are compared in canonical form: upper-case with any "ROLE_" prefix
// removed, so "role_admin", "ROLE_ADMIN" and "admin" name the same role.
// Each role maps to a [Mask64] of registered permissions.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goCatalog or jwt.
//   - Accept registrations after Freeze.
package permission

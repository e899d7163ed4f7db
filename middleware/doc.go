// Package middleware adapts goCatalog.Engine authorization to net/http.
//
// # Guards
//
//   - [Guard] verifies the bearer access token and, optionally, a role.
//   - [RequireAuth] accepts any valid access token.
//   - [RequireRole] additionally requires one role, e.g. "ADMIN".
//
// A missing or invalid token yields 401; a valid token lacking the role
// yields 403. On success the identity is stored with goCatalog.WithIdentity.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the catalog store.
package middleware

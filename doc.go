// Package goCatalog provides the core of a catalog-query API: stateless JWT
// access and refresh tokens in front of a read-through query cache that stays
// coherent across catalog writes.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCatalog is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (Identity, Product, LoginResult, MetricsSnapshot). Flow orchestration, rate limiting, and
// audit dispatch live under internal/ and are never exported. Persistence is reached only
// through the [CredentialStore] and [CatalogStore] interfaces.
//
// # Cache coherence
//
// Every catalog read goes through [Engine.CachedQuery]. Every catalog write persists first
// and then calls [Engine.OnCatalogMutation], which drops the whole query namespace. A read
// that started before the write can never store its result after the invalidation.
//
// # What this package must NOT do
//
//   - Expose Redis clients, cache stores, or token encoding details in its public API.
//   - Keep server-side session state: tokens are self-contained and not revocable.
//   - Import any sub-package that re-imports goCatalog (no import cycles).
package goCatalog

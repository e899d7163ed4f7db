// Package cache implements the read-through query cache that sits in front
// of catalog lookups.
//
// # Components
//
//   - [Store] is a generation-versioned key/value namespace. [Memory] keeps it
//     in process; [Redis] shares it between processes.
//   - [Layer] is the read-through front: it fingerprints a query, serves hits,
//     runs the fallback on a miss, and stores the result only if no
//     invalidation happened in between.
//
// # Invalidation
//
// InvalidateAll drops the whole namespace in one step by advancing the
// generation. There is no per-entry expiry and no partial eviction. A read
// that began before an invalidation can still return what it read, but it
// can never install that value into the new generation.
package cache

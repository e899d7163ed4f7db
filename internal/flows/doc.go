// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunAuthorize, RunQuery,
// RunMutation) accepts a typed dependency struct and returns a result that
// carries either the payload or a classified failure kind. The root package
// maps failure kinds to its public sentinel errors, metrics, and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token verifier and issuer, the
// credential store, the rate limiter, and the query cache. They do NOT own any
// of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCatalog (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows

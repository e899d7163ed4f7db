// Package jwt encodes, issues, and verifies the stateless access and refresh
// tokens used by goCatalog.
//
// # Components
//
//   - [Codec] turns [Claims] into a signed compact JWS string and back. Decode
//     failures are reported as [*DecodeError] with a [DecodeErrorKind].
//   - [Issuer] stamps issued-at/expires-at from an injected clock and signs
//     access and refresh tokens with distinct lifetimes.
//   - [Verifier] checks expiry, kind, and subject against the same clock.
//
// # Architecture boundaries
//
// This package holds no server-side token state. A token stays valid until it
// expires; there is no revocation list.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import goCatalog (to avoid import cycles).
package jwt

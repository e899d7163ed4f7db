// Package rate provides Redis-backed fixed-window counters that throttle
// login and refresh attempts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key suffixes
// under the configured prefix:
//   - al:  login failures per username
//   - ali: login failures per client IP
//   - ar:  refresh attempts per subject
//
// # What this package must NOT do
//
//   - Decide what counts as a failed attempt (the login flow does).
//   - Be imported outside the goCatalog module.
package rate

// Package prometheus renders goCatalog engine metrics in the Prometheus text
// exposition format.
//
// Counters are named catalog_*_total; the single histogram is
// catalog_query_latency_seconds and measures cache-miss fallbacks.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus

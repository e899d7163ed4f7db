package internaldefs

import (
	goCatalog "github.com/MrEthical07/goCatalog"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goCatalog.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goCatalog.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: goCatalog.MetricLoginSuccess, Name: "catalog_login_success_total", Help: "Successful login attempts."},
	{ID: goCatalog.MetricLoginFailure, Name: "catalog_login_failure_total", Help: "Failed login attempts."},
	{ID: goCatalog.MetricLoginRateLimited, Name: "catalog_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goCatalog.MetricRefreshSuccess, Name: "catalog_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goCatalog.MetricRefreshFailure, Name: "catalog_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goCatalog.MetricRefreshRateLimited, Name: "catalog_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: goCatalog.MetricAuthorizeSuccess, Name: "catalog_authorize_success_total", Help: "Accepted access tokens."},
	{ID: goCatalog.MetricAuthorizeFailure, Name: "catalog_authorize_failure_total", Help: "Rejected access tokens."},
	{ID: goCatalog.MetricAuthorizeForbidden, Name: "catalog_authorize_forbidden_total", Help: "Valid tokens lacking the required role."},
	{ID: goCatalog.MetricTokenDecodeFailure, Name: "catalog_token_decode_failure_total", Help: "Malformed or forged tokens."},
	{ID: goCatalog.MetricRegisterSuccess, Name: "catalog_register_success_total", Help: "Created accounts."},
	{ID: goCatalog.MetricRegisterDuplicate, Name: "catalog_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: goCatalog.MetricCacheHit, Name: "catalog_cache_hit_total", Help: "Queries served from the cache."},
	{ID: goCatalog.MetricCacheMiss, Name: "catalog_cache_miss_total", Help: "Queries that ran the store fallback."},
	{ID: goCatalog.MetricCacheInvalidation, Name: "catalog_cache_invalidation_total", Help: "Whole-cache invalidations."},
	{ID: goCatalog.MetricCatalogMutation, Name: "catalog_mutation_total", Help: "Committed catalog writes."},
	{ID: goCatalog.MetricCatalogMutationFailure, Name: "catalog_mutation_failure_total", Help: "Rejected catalog writes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCatalog.MetricQueryLatency, Name: "catalog_query_latency_seconds", Help: "Cache-miss query latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// or truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

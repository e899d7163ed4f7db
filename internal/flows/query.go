package flows

import (
	"context"

	"github.com/MrEthical07/goCatalog/cache"
)

// QueryResult reports how a cached query was served.
type QueryResult struct {
	Fingerprint string
	Hit         bool
	Err         error
}

// QueryDeps captures cached-query dependencies.
type QueryDeps struct {
	Query func(ctx context.Context, fingerprint string, fallback cache.Fallback, out any) (bool, error)
}

// RunQuery fingerprints op and args and serves the result through the
// read-through cache, decoding it into out.
func RunQuery(ctx context.Context, op string, args []any, fallback cache.Fallback, out any, deps QueryDeps) QueryResult {
	fp := cache.Fingerprint(op, args...)
	hit, err := deps.Query(ctx, fp, fallback, out)
	return QueryResult{Fingerprint: fp, Hit: hit, Err: err}
}

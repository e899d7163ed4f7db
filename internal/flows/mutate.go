package flows

import "context"

// MutationFailureKind classifies catalog write failures.
type MutationFailureKind int

const (
	MutationFailureNone MutationFailureKind = iota
	MutationFailureStore
	MutationFailureInvalidate
)

// MutationResult reports the outcome of a write and the cache generation it
// produced.
type MutationResult struct {
	Failure    MutationFailureKind
	Err        error
	Generation uint64
}

// MutationDeps captures write-path dependencies.
type MutationDeps struct {
	Invalidate func(ctx context.Context) (uint64, error)
}

// RunMutation applies mutate against the catalog store and then drops the
// whole query cache. A failed mutation changes nothing and leaves the cache
// untouched.
func RunMutation(ctx context.Context, mutate func(context.Context) error, deps MutationDeps) MutationResult {
	if err := mutate(ctx); err != nil {
		return MutationResult{Failure: MutationFailureStore, Err: err}
	}

	gen, err := deps.Invalidate(ctx)
	if err != nil {
		return MutationResult{Failure: MutationFailureInvalidate, Err: err}
	}
	return MutationResult{Generation: gen}
}

package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Store is a generation-versioned cache namespace.
//
// Get and PutIf always address the current generation. InvalidateAll
// advances the generation atomically so readers observe either the full old
// namespace or the empty new one, never a subset.
type Store interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, fingerprint string) ([]byte, bool, error)
	// PutIf stores value only while the current generation equals
	// generation, and reports whether it did.
	PutIf(ctx context.Context, generation uint64, fingerprint string, value []byte) (bool, error)
	InvalidateAll(ctx context.Context) (uint64, error)
}

// Fingerprint builds the cache key for a named query and its arguments.
//
//	Fingerprint("active")                  // "active"
//	Fingerprint("category", "Electronics") // "category:Electronics"
//	Fingerprint("active_page", 0, 10)      // "active_page:0_10"
//
// Arguments are joined with '_' and are not escaped; callers keep the arity
// of each operation fixed.
func Fingerprint(op string, args ...any) string {
	if len(args) == 0 {
		return op
	}

	var b strings.Builder
	b.WriteString(op)
	b.WriteByte(':')
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(formatArg(arg))
	}
	return b.String()
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

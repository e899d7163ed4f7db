package cache

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Entry is one cached query result. Found is false for a cached absence.
type Entry struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Fallback computes a query result on a cache miss.
type Fallback func(ctx context.Context) (any, error)

// Option configures a [Layer].
type Option func(*Layer)

// WithLogger routes cache warnings to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithNegativeCaching caches fallback failures matching notFound as absent
// entries. Later hits on such an entry return notFound without calling the
// fallback.
func WithNegativeCaching(notFound error) Option {
	return func(l *Layer) {
		l.notFound = notFound
	}
}

// Layer is the read-through cache in front of a slow query source.
type Layer struct {
	store    Store
	logger   *zap.Logger
	notFound error
}

// NewLayer wraps store.
func NewLayer(store Store, opts ...Option) *Layer {
	l := &Layer{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the entry cached under fingerprint in the current generation.
func (l *Layer) Get(ctx context.Context, fingerprint string) (Entry, bool, error) {
	raw, ok, err := l.store.Get(ctx, fingerprint)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %q: %w", fingerprint, err)
	}
	return e, true, nil
}

// Put stores e under fingerprint in the current generation.
func (l *Layer) Put(ctx context.Context, fingerprint string, e Entry) error {
	gen, err := l.store.Generation(ctx)
	if err != nil {
		return err
	}
	_, err = l.putIf(ctx, gen, fingerprint, e)
	return err
}

// InvalidateAll drops every entry and returns the new generation.
func (l *Layer) InvalidateAll(ctx context.Context) (uint64, error) {
	return l.store.InvalidateAll(ctx)
}

// Query serves fingerprint from the cache or computes it with fallback, and
// decodes the result into out. hit reports whether fallback was skipped.
//
// The generation is captured before fallback runs. If an invalidation lands
// while fallback is running, its result is returned but not stored.
//
// When the store itself fails, Query logs a warning and serves fallback
// uncached.
func (l *Layer) Query(ctx context.Context, fingerprint string, fallback Fallback, out any) (hit bool, err error) {
	gen, genErr := l.store.Generation(ctx)
	if genErr == nil {
		e, ok, err := l.Get(ctx, fingerprint)
		switch {
		case err != nil:
			l.logger.Warn("cache read failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		case ok && !e.Found:
			if l.notFound != nil {
				return true, l.notFound
			}
		case ok:
			if err := json.Unmarshal(e.Value, out); err != nil {
				return true, fmt.Errorf("decode cached value %q: %w", fingerprint, err)
			}
			return true, nil
		}
	} else {
		l.logger.Warn("cache generation unavailable", zap.String("fingerprint", fingerprint), zap.Error(genErr))
	}

	v, err := fallback(ctx)
	if err != nil {
		if genErr == nil && l.notFound != nil && errors.Is(err, l.notFound) {
			l.storeQuiet(ctx, gen, fingerprint, Entry{Found: false})
		}
		return false, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode query result %q: %w", fingerprint, err)
	}
	if genErr == nil {
		l.storeQuiet(ctx, gen, fingerprint, Entry{Found: true, Value: data})
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode query result %q: %w", fingerprint, err)
	}
	return false, nil
}

func (l *Layer) putIf(ctx context.Context, gen uint64, fingerprint string, e Entry) (bool, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode cache entry %q: %w", fingerprint, err)
	}
	return l.store.PutIf(ctx, gen, fingerprint, raw)
}

func (l *Layer) storeQuiet(ctx context.Context, gen uint64, fingerprint string, e Entry) {
	stored, err := l.putIf(ctx, gen, fingerprint, e)
	if err != nil {
		l.logger.Warn("cache write failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		return
	}
	if !stored {
		l.logger.Debug("cache write skipped after invalidation",
			zap.String("fingerprint", fingerprint),
			zap.Uint64("generation", gen),
		)
	}
}

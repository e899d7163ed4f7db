package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const purgeBatchSize = 256

// getScript reads fingerprint under whatever generation is current at the
// moment the script runs.
var getScript = redis.NewScript(`
local g = redis.call('GET', KEYS[1]) or '0'
return redis.call('GET', ARGV[1] .. ':g' .. g .. ':' .. ARGV[2])
`)

// putIfScript writes only when the caller's generation is still current.
var putIfScript = redis.NewScript(`
local g = redis.call('GET', KEYS[1]) or '0'
if g ~= ARGV[1] then
	return 0
end
redis.call('SET', ARGV[2] .. ':g' .. g .. ':' .. ARGV[3], ARGV[4])
return 1
`)

// Redis is a [Store] shared between processes. Entries live under
// "<prefix>:g<generation>:<fingerprint>" and the generation counter under
// "<prefix>:gen"; InvalidateAll is a single INCR.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedis binds a store to client under prefix. A nil logger disables purge
// warnings.
func NewRedis(client redis.UniversalClient, prefix string, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = "qc"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) genKey() string {
	return r.prefix + ":gen"
}

func (r *Redis) Generation(ctx context.Context) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func (r *Redis) Get(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	v, err := getScript.Run(ctx, r.client, []string{r.genKey()}, r.prefix, fingerprint).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return []byte(v), true, nil
}

func (r *Redis) PutIf(ctx context.Context, generation uint64, fingerprint string, value []byte) (bool, error) {
	stored, err := putIfScript.Run(
		ctx,
		r.client,
		[]string{r.genKey()},
		strconv.FormatUint(generation, 10),
		r.prefix,
		fingerprint,
		string(value),
	).Int()
	if err != nil {
		return false, fmt.Errorf("write cache entry: %w", err)
	}
	return stored == 1, nil
}

// InvalidateAll advances the generation and then unlinks the previous
// generation's keys. The purge is best effort; leftover keys are unreachable.
func (r *Redis) InvalidateAll(ctx context.Context) (uint64, error) {
	gen, err := r.client.Incr(ctx, r.genKey()).Uint64()
	if err != nil {
		return 0, fmt.Errorf("advance cache generation: %w", err)
	}

	if err := r.purge(ctx, gen-1); err != nil {
		r.logger.Warn("cache purge failed", zap.Uint64("generation", gen-1), zap.Error(err))
	}
	return gen, nil
}

func (r *Redis) purge(ctx context.Context, generation uint64) error {
	pattern := r.prefix + ":g" + strconv.FormatUint(generation, 10) + ":*"
	iter := r.client.Scan(ctx, 0, pattern, purgeBatchSize).Iterator()

	batch := make([]string, 0, purgeBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatchSize {
			if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

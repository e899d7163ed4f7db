package goCatalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/cache"
	internalaudit "github.com/MrEthical07/goCatalog/internal/audit"
	"github.com/MrEthical07/goCatalog/internal/rate"
	"github.com/MrEthical07/goCatalog/jwt"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/permission"
)

// Builder assembles an [Engine]. A Builder is single-use: Build may succeed
// at most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialStore
	catalog     CatalogStore
	cacheStore  cache.Store
	roles       *permission.RoleManager

	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client used by the redis cache backend and
// the login and refresh throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the user lookup backend. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithCatalogStore sets the product persistence backend. Required.
func (b *Builder) WithCatalogStore(store CatalogStore) *Builder {
	b.catalog = store
	return b
}

// WithCacheStore overrides the cache backend selected by Config.Cache.
func (b *Builder) WithCacheStore(store cache.Store) *Builder {
	b.cacheStore = store
	return b
}

// WithRoles replaces the default USER/ADMIN role set.
func (b *Builder) WithRoles(rm *permission.RoleManager) *Builder {
	b.roles = rm
	return b
}

// WithLogger routes engine logs to logger. The default discards them.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock injects the time source used for token issuance and
// verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the cache-miss latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs the engine. Key material
// problems surface here rather than on first use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.catalog == nil {
		return nil, errors.New("catalog store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	codec, err := jwt.NewCodec(cfg.JWT.codecConfig())
	if err != nil {
		return nil, fmt.Errorf("jwt codec: %w", err)
	}
	issuer, err := jwt.NewIssuer(codec, cfg.JWT.codecConfig(), now)
	if err != nil {
		return nil, fmt.Errorf("jwt issuer: %w", err)
	}

	hasher, err := password.NewArgon2(cfg.Password.argon2Config())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	roles := b.roles
	if roles == nil {
		roles = permission.DefaultRoles()
	}
	if cfg.Account.Enabled && !roles.Known(cfg.Account.DefaultRole) {
		return nil, fmt.Errorf("%w: default role %q", ErrUnknownRole, cfg.Account.DefaultRole)
	}

	store := b.cacheStore
	if store == nil {
		switch cfg.Cache.Backend {
		case CacheBackendRedis:
			if b.redis == nil {
				return nil, errors.New("redis cache backend requires a redis client")
			}
			store = cache.NewRedis(b.redis, cfg.Cache.RedisPrefix, logger)
		case CacheBackendLRU:
			store, err = cache.NewLRU(cfg.Cache.MaxEntries)
			if err != nil {
				return nil, err
			}
		default:
			store = cache.NewMemory()
		}
	}
	layerOpts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Cache.NegativeCaching {
		layerOpts = append(layerOpts, cache.WithNegativeCaching(ErrNotFound))
	}

	var limiter *rate.Limiter
	if b.redis != nil && (cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle) {
		limiter = rate.New(b.redis, rate.Config{
			KeyPrefix:               cfg.Security.RateLimitPrefix,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}

	e := &Engine{
		config:      cfg,
		logger:      logger,
		now:         now,
		issuer:      issuer,
		verifier:    jwt.NewVerifier(codec, now),
		cache:       cache.NewLayer(store, layerOpts...),
		credentials: b.credentials,
		catalog:     b.catalog,
		hasher:      hasher,
		roles:       roles,
		limiter:     limiter,
		metrics:     NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	e.initFlowDeps()

	b.built = true
	logger.Info("catalog engine ready",
		zap.String("signing_method", cfg.JWT.SigningMethod),
		zap.Duration("access_ttl", issuer.AccessTTL()),
		zap.Duration("refresh_ttl", issuer.RefreshTTL()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("login_throttle", limiter != nil && cfg.Security.EnableLoginThrottle),
	)
	return e, nil
}

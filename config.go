package goCatalog

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goCatalog/jwt"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/permission"
)

// Config is the full engine configuration. Build it with [DefaultConfig],
// adjust fields, and hand it to [Builder.WithConfig].
type Config struct {
	JWT      JWTConfig
	Cache    CacheConfig
	Security SecurityConfig
	Password PasswordConfig
	Account  AccountConfig
	Catalog  CatalogConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects the signing method, key material, and token windows.
// RefreshTTL must be strictly greater than AccessTTL.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
CACHE CONFIG
====================================
*/

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendLRU    = "lru"
	CacheBackendRedis  = "redis"
)

// CacheConfig selects where cached query results live.
type CacheConfig struct {
	Backend         string // "memory" (default), "lru", or "redis"
	RedisPrefix     string
	MaxEntries      int // lru only
	NegativeCaching bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tunes the Redis-backed login and refresh throttles. Both
// are inactive when the engine has no Redis client.
type SecurityConfig struct {
	EnableLoginThrottle     bool
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
	RateLimitPrefix         string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the accepted length range.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls self-service registration.
type AccountConfig struct {
	Enabled           bool
	DefaultRole       string
	MinUsernameLength int
	MaxUsernameLength int
	MaxEmailLength    int
}

/*
====================================
CATALOG CONFIG
====================================
*/

// CatalogConfig holds catalog query defaults.
type CatalogConfig struct {
	LowStockThreshold int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults. Key material is left empty
// and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     jwt.DefaultAccessTTL,
			RefreshTTL:    jwt.DefaultRefreshTTL,
			SigningMethod: string(jwt.MethodEd25519),
		},
		Cache: CacheConfig{
			Backend:         CacheBackendMemory,
			RedisPrefix:     "qc",
			MaxEntries:      10000,
			NegativeCaching: true,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:     true,
			EnableIPThrottle:        false,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
			RateLimitPrefix:         "rl",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        1,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   password.DefaultMinPasswordBytes,
			MaxLength:   password.DefaultMaxPasswordBytes,
		},
		Account: AccountConfig{
			Enabled:           true,
			DefaultRole:       permission.RoleUser,
			MinUsernameLength: 3,
			MaxUsernameLength: 50,
			MaxEmailLength:    100,
		},
		Catalog: CatalogConfig{
			LowStockThreshold: 10,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c JWTConfig) codecConfig() jwt.Config {
	return jwt.Config{
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		SigningMethod: jwt.SigningMethod(c.SigningMethod),
		PrivateKey:    c.PrivateKey,
		PublicKey:     c.PublicKey,
		Issuer:        c.Issuer,
		Audience:      c.Audience,
		KeyID:         c.KeyID,
		VerifyKeys:    c.VerifyKeys,
	}
}

func (c PasswordConfig) argon2Config() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MinPasswordBytes: c.MinLength,
		MaxPasswordBytes: c.MaxLength,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found. Builder.Build calls
// it before constructing anything.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL < time.Second {
		return errors.New("JWT AccessTTL must be >= 1s")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Cache
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendLRU:
		if c.Cache.MaxEntries <= 0 {
			return errors.New("Cache MaxEntries must be > 0 for the lru backend")
		}
	case CacheBackendRedis:
		if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
			return errors.New("Cache RedisPrefix must be set for the redis backend")
		}
	default:
		return errors.New("Cache Backend must be 'memory', 'lru', or 'redis'")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 || c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password length bounds must satisfy 1 <= MinLength <= MaxLength")
	}

	// Account
	if c.Account.Enabled {
		if c.Account.MinUsernameLength < 1 || c.Account.MaxUsernameLength < c.Account.MinUsernameLength {
			return errors.New("Account username bounds must satisfy 1 <= min <= max")
		}
		if c.Account.MaxEmailLength < 3 {
			return errors.New("Account MaxEmailLength must be >= 3")
		}
		if permission.NormalizeRole(c.Account.DefaultRole) == "" {
			return errors.New("Account DefaultRole must be set")
		}
	}

	// Catalog
	if c.Catalog.LowStockThreshold < 0 {
		return errors.New("Catalog LowStockThreshold must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

// Package config loads catalogd settings from defaults, an optional YAML
// file, CATALOGD_* environment variables, and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	goCatalog "github.com/MrEthical07/goCatalog"
)

// EnvPrefix is prepended to every environment key, e.g. CATALOGD_JWT_SECRET.
const EnvPrefix = "CATALOGD"

// Config holds the catalogd process configuration.
type Config struct {
	// HTTP bind address (host:port)
	Addr string `mapstructure:"addr"`

	// Empty selects the in-memory stores. postgres:// URLs use PostgreSQL,
	// anything else is a SQLite DSN.
	DatabaseURL      string `mapstructure:"database_url"`
	MaxDBConnections int    `mapstructure:"max_db_connections"`

	// Empty disables Redis: the cache stays in process and login
	// throttling is off.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	Cache   CacheConfig   `mapstructure:"cache"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// When Admin.Username is set, serve creates this ADMIN account at
	// startup unless it already exists.
	Admin AdminConfig `mapstructure:"admin"`

	AuditLog        bool          `mapstructure:"audit_log"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig selects the query cache backend.
type CacheConfig struct {
	Backend         string `mapstructure:"backend"`
	Prefix          string `mapstructure:"prefix"`
	MaxEntries      int    `mapstructure:"max_entries"`
	NegativeCaching bool   `mapstructure:"negative_caching"`
}

// JWTConfig holds token settings. hs256 reads Secret; ed25519 reads PEM or
// raw key files.
type JWTConfig struct {
	SigningMethod  string        `mapstructure:"signing_method"`
	Secret         string        `mapstructure:"secret"`
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	PublicKeyFile  string        `mapstructure:"public_key_file"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
}

// AdminConfig names the bootstrap administrator.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the engine counters and the /metrics endpoint.
type MetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

// NewViper returns a viper instance with every key defaulted and bound to
// its CATALOGD_* variable.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := goCatalog.DefaultConfig()
	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.prefix", def.Cache.RedisPrefix)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)
	v.SetDefault("cache.negative_caching", def.Cache.NegativeCaching)
	v.SetDefault("jwt.signing_method", "hs256")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", "catalogd")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.access_ttl", def.JWT.AccessTTL)
	v.SetDefault("jwt.refresh_ttl", def.JWT.RefreshTTL)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.latency_histograms", true)
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("audit_log", false)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	return v
}

// Load reads configFile when set, then decodes v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Engine converts the process settings into an engine configuration, loading
// key files as needed.
func (c *Config) Engine() (goCatalog.Config, error) {
	out := goCatalog.DefaultConfig()
	out.JWT.SigningMethod = strings.ToLower(c.JWT.SigningMethod)
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL

	switch out.JWT.SigningMethod {
	case "hs256":
		if c.JWT.Secret == "" {
			return out, errors.New("jwt.secret is required for hs256")
		}
		out.JWT.PrivateKey = []byte(c.JWT.Secret)
	case "ed25519":
		if c.JWT.PrivateKeyFile == "" {
			return out, errors.New("jwt.private_key_file is required for ed25519")
		}
		key, err := os.ReadFile(c.JWT.PrivateKeyFile)
		if err != nil {
			return out, fmt.Errorf("read private key: %w", err)
		}
		out.JWT.PrivateKey = key
		if c.JWT.PublicKeyFile != "" {
			pub, err := os.ReadFile(c.JWT.PublicKeyFile)
			if err != nil {
				return out, fmt.Errorf("read public key: %w", err)
			}
			out.JWT.PublicKey = pub
		}
	default:
		return out, fmt.Errorf("unsupported jwt.signing_method %q", c.JWT.SigningMethod)
	}

	out.Cache.Backend = c.Cache.Backend
	out.Cache.RedisPrefix = c.Cache.Prefix
	out.Cache.MaxEntries = c.Cache.MaxEntries
	out.Cache.NegativeCaching = c.Cache.NegativeCaching
	if c.Cache.Backend == goCatalog.CacheBackendRedis && c.RedisAddr == "" {
		return out, errors.New("cache.backend redis requires redis_addr")
	}

	out.Audit.Enabled = c.AuditLog
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// String renders the settings with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  Addr: %s\n", c.Addr)
	fmt.Fprintf(&sb, "  DatabaseURL: %s\n", maskDSN(c.DatabaseURL))
	fmt.Fprintf(&sb, "  RedisAddr: %s\n", c.RedisAddr)
	fmt.Fprintf(&sb, "  Cache: %s (negative=%v)\n", c.Cache.Backend, c.Cache.NegativeCaching)
	fmt.Fprintf(&sb, "  JWT: %s access=%s refresh=%s\n", c.JWT.SigningMethod, c.JWT.AccessTTL, c.JWT.RefreshTTL)
	if c.JWT.Secret != "" {
		sb.WriteString("  JWTSecret: ********\n")
	} else {
		sb.WriteString("  JWTSecret: (empty)\n")
	}
	fmt.Fprintf(&sb, "  Log: %s\n", c.Log.Level)
	return sb.String()
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "(memory)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "****" + dsn[at:]
}

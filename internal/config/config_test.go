package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Cache.NegativeCaching)
	assert.Equal(t, "hs256", cfg.JWT.SigningMethod)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogd.yaml")
	content := `
addr: "127.0.0.1:9090"
database_url: "file:catalog.db"
cache:
  backend: redis
  prefix: "shop"
jwt:
  secret: "file-secret-file-secret-file-secret"
  access_ttl: 5m
  refresh_ttl: 1h
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "file:catalog.db", cfg.DatabaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "shop", cfg.Cache.Prefix)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvironmentPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\njwt:\n  secret: from-file\n"), 0o600))

	t.Setenv("CATALOGD_ADDR", ":7001")
	t.Setenv("CATALOGD_JWT_SECRET", "from-env")
	t.Setenv("CATALOGD_CACHE_NEGATIVE_CACHING", "false")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.False(t, cfg.Cache.NegativeCaching)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "jwt.secret")

	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	ec, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, "hs256", ec.JWT.SigningMethod)
	assert.Equal(t, []byte(cfg.JWT.Secret), ec.JWT.PrivateKey)
	assert.Equal(t, "catalogd", ec.JWT.Issuer)

	cfg.JWT.Secret = "short"
	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "hs256")

	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Cache.Backend = "redis"
	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "redis_addr")

	cfg.Cache.Backend = "memory"
	cfg.JWT.RefreshTTL = cfg.JWT.AccessTTL
	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "RefreshTTL")

	cfg.JWT.SigningMethod = "rs512"
	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "signing_method")
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://user:hunter2@db:5432/catalog",
		JWT:         JWTConfig{Secret: "top-secret"},
	}
	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "top-secret")
	assert.Contains(t, s, "postgres://****@db:5432/catalog")
}

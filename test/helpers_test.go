//go:build integration
// +build integration

package test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/store/memstore"
)

// cluster is two engines sharing one catalog, one account table, one Redis
// and one signing key, the way two catalogd replicas would.
type cluster struct {
	a, b    *goCatalog.Engine
	catalog *memstore.Catalog
	users   *memstore.Users
	rdb     *redis.Client
	mr      *miniredis.Miniredis
}

func newCluster(t *testing.T) *cluster {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519 key: %v", err)
	}

	cfg := goCatalog.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Cache.Backend = goCatalog.CacheBackendRedis
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Parallelism = 1

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	c := &cluster{
		catalog: memstore.NewCatalog(nil),
		users:   memstore.NewUsers(hasher),
		rdb:     rdb,
		mr:      mr,
	}
	if err := c.users.Seed(context.Background(), "alice", "alice@example.com", "secret1", "ADMIN"); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if err := c.users.Seed(context.Background(), "bob", "bob@example.com", "secret2", "USER"); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	c.a = c.build(t, cfg)
	c.b = c.build(t, cfg)
	return c
}

func (c *cluster) build(t *testing.T, cfg goCatalog.Config) *goCatalog.Engine {
	t.Helper()
	engine, err := goCatalog.New().
		WithConfig(cfg).
		WithRedis(c.rdb).
		WithCredentialStore(c.users).
		WithCatalogStore(c.catalog).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func mustCreate(t *testing.T, engine *goCatalog.Engine, name, sku, category string) *goCatalog.Product {
	t.Helper()
	p, err := engine.CreateProduct(context.Background(), goCatalog.Product{
		Name:       name,
		SKU:        sku,
		Category:   category,
		PriceCents: 1000,
		Quantity:   5,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s) failed: %v", sku, err)
	}
	return p
}

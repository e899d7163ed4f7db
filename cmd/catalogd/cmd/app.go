package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/internal/config"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/store/bunstore"
	"github.com/MrEthical07/goCatalog/store/memstore"
)

// app owns the engine and the connections behind it.
type app struct {
	engine *goCatalog.Engine
	db     *bun.DB
	redis  *redis.Client
}

func openDB(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("a database URL is required (--db-url or CATALOGD_DATABASE_URL)")
	}
	db, err := bunstore.NewDB(ctx, cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	a := &app{}
	b := goCatalog.New().
		WithConfig(engineCfg).
		WithLogger(logger.Named("engine"))

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.WithRedis(a.redis)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		logger.Warn("no database configured, using in-memory stores")
		b.WithCredentialStore(memstore.NewUsers(hasher)).
			WithCatalogStore(memstore.NewCatalog(nil))
	} else {
		a.db, err = openDB(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		if bunstore.DetectDatabaseType(cfg.DatabaseURL) == bunstore.DatabaseTypeSQLite {
			// A fresh SQLite file is usable without a separate migrate step.
			if _, err := bunstore.Migrate(ctx, a.db); err != nil {
				a.Close()
				return nil, err
			}
		}
		b.WithCredentialStore(bunstore.NewUsers(a.db, hasher, nil)).
			WithCatalogStore(bunstore.NewCatalog(a.db, nil))
		logger.Info("connected to database", zap.String("type", string(bunstore.DetectDatabaseType(cfg.DatabaseURL))))
	}

	if cfg.AuditLog {
		b.WithAuditSink(goCatalog.NewZapSink(logger))
	}

	a.engine, err = b.Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return a, nil
}

// Close releases the engine, then the connections.
func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = bunstore.Close(a.db)
	}
}

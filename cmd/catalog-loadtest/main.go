package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/internal/logging"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/store/memstore"
)

var categories = []string{"Electronics", "Books", "Furniture", "Garden", "Toys", "Sports"}

func main() {
	var (
		products    = flag.Int("products", 10000, "number of products to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		writeRatio  = flag.Float64("write-ratio", 0.01, "fraction of mixed-phase operations that update a product")
		backend     = flag.String("backend", goCatalog.CacheBackendRedis, "cache backend: memory, lru, or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		logLevel    = flag.String("log-level", "warn", "engine log level")
	)
	flag.Parse()

	if *products <= 0 || *concurrency <= 0 || *ops <= 0 || *writeRatio < 0 || *writeRatio > 1 {
		fmt.Fprintln(os.Stderr, "products, concurrency, and ops must be > 0; write-ratio must be in [0,1]")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg := goCatalog.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("catalog-loadtest-signing-secret-0123456789")
	cfg.Cache.Backend = *backend
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false

	logger, err := logging.New(*logLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(1)
	}

	b := goCatalog.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithCredentialStore(memstore.NewUsers(hasher)).
		WithCatalogStore(memstore.NewCatalog(nil))

	if *backend == goCatalog.CacheBackendRedis {
		client, cleanup, err := connectRedis(*redisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer cleanup()
		b.WithRedis(client)
	}

	engine, err := b.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d products...\n", *products)
	startSeed := time.Now()
	ids := make([]int64, *products)
	for i := range ids {
		p, err := engine.CreateProduct(ctx, productFor(i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = p.ID
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		return randomRead(ctx, engine, ids, r)
	})
	mixedStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		if r.Float64() < *writeRatio {
			return randomWrite(ctx, engine, ids, r)
		}
		return randomRead(ctx, engine, ids, r)
	})

	snap := engine.Metrics()
	hits := snap.Counters[goCatalog.MetricCacheHit]
	misses := snap.Counters[goCatalog.MetricCacheMiss]

	fmt.Println("---- results ----")
	printStats("read", readStats)
	printStats("mixed", mixedStats)
	if hits+misses > 0 {
		fmt.Printf("cache: hits=%d misses=%d hit-ratio=%.3f invalidations=%d\n",
			hits, misses, float64(hits)/float64(hits+misses), snap.Counters[goCatalog.MetricCacheInvalidation])
	}
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func randomRead(ctx context.Context, engine *goCatalog.Engine, ids []int64, r *rand.Rand) error {
	switch r.Intn(4) {
	case 0:
		_, err := engine.GetProduct(ctx, ids[r.Intn(len(ids))])
		return err
	case 1:
		_, err := engine.ListProductsByCategory(ctx, categories[r.Intn(len(categories))])
		return err
	case 2:
		_, err := engine.ListActiveProductsPage(ctx, goCatalog.PageRequest{Page: r.Intn(10), Size: 20})
		return err
	default:
		_, err := engine.ListLowStockProducts(ctx, -1)
		return err
	}
}

func randomWrite(ctx context.Context, engine *goCatalog.Engine, ids []int64, r *rand.Rand) error {
	i := r.Intn(len(ids))
	p := productFor(i)
	p.Quantity = r.Intn(100)
	_, err := engine.UpdateProduct(ctx, ids[i], p)
	return err
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func productFor(i int) goCatalog.Product {
	return goCatalog.Product{
		Name:       fmt.Sprintf("Product %d", i),
		SKU:        fmt.Sprintf("SKU-%06d", i),
		PriceCents: int64(100 + (i*37)%50000),
		Quantity:   (i * 13) % 60,
		Category:   categories[i%len(categories)],
		Brand:      fmt.Sprintf("Brand %d", i%25),
		Active:     true,
	}
}

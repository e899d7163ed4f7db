package goCatalog

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

func countingActive(kit *testKit, calls *atomic.Int64) Fallback {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return kit.catalog.ListActive(ctx)
	}
}

func runActiveScenario(t *testing.T, kit *testKit) {
	t.Helper()
	ctx := context.Background()
	var calls atomic.Int64
	fallback := countingActive(kit, &calls)

	var first, second []Product
	if err := kit.engine.CachedQuery(ctx, OpActive, nil, fallback, &first); err != nil {
		t.Fatalf("first query: %v", err)
	}
	if err := kit.engine.CachedQuery(ctx, OpActive, nil, fallback, &second); err != nil {
		t.Fatalf("second query: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fallback calls after two queries = %d, want 1", got)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %d vs %d", len(first), len(second))
	}

	if _, err := kit.engine.CreateProduct(ctx, sampleProduct("SKU-NEW")); err != nil {
		t.Fatalf("create: %v", err)
	}

	var third []Product
	if err := kit.engine.CachedQuery(ctx, OpActive, nil, fallback, &third); err != nil {
		t.Fatalf("third query: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("fallback calls after create = %d, want 2", got)
	}
	if len(third) != len(first)+1 {
		t.Fatalf("expected new product in result, got %d items", len(third))
	}
}

func TestCachedQueryInvalidatedByCreate(t *testing.T) {
	kit := newTestKit(t, nil)
	if _, err := kit.engine.CreateProduct(context.Background(), sampleProduct("SKU-1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	runActiveScenario(t, kit)

	snap := kit.engine.Metrics()
	if snap.Counters[MetricCacheHit] != 1 || snap.Counters[MetricCacheMiss] != 2 {
		t.Fatalf("unexpected cache counters %+v", snap.Counters)
	}
}

func TestCachedQueryRedisBackend(t *testing.T) {
	_, rdb := newTestRedis(t)
	kit := newTestKit(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Cache.Backend = CacheBackendRedis
		b.WithConfig(cfg).WithRedis(rdb)
	})
	runActiveScenario(t, kit)
}

func TestCachedQueryLRUBackend(t *testing.T) {
	kit := newTestKit(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Cache.Backend = CacheBackendLRU
		cfg.Cache.MaxEntries = 16
		b.WithConfig(cfg)
	})
	runActiveScenario(t, kit)
}

func TestCachedQueryFallbackErrorNotCached(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()
	boom := errors.New("db down")
	var calls atomic.Int64
	fallback := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	var out []Product
	for i := 0; i < 2; i++ {
		if err := kit.engine.CachedQuery(ctx, OpAll, nil, fallback, &out); !errors.Is(err, boom) {
			t.Fatalf("expected fallback error, got %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("errors must not be cached, calls = %d", calls.Load())
	}
}

func TestGetProductNegativeCaching(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	if _, err := kit.engine.GetProduct(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	before := kit.catalog.calls.Load()
	if _, err := kit.engine.GetProduct(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cached not found, got %v", err)
	}
	if kit.catalog.calls.Load() != before {
		t.Fatal("negative result should be served from cache")
	}

	created, err := kit.engine.CreateProduct(ctx, sampleProduct("SKU-42"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := kit.engine.GetProduct(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if got.SKU != "SKU-42" || got.PriceCents != 19999 {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestNegativeCachingDisabled(t *testing.T) {
	kit := newTestKit(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Cache.NegativeCaching = false
		b.WithConfig(cfg)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := kit.engine.GetProductBySku(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if got := kit.engine.Metrics().Counters[MetricCacheHit]; got != 0 {
		t.Fatalf("hits = %d, want 0", got)
	}
}

func TestStaleFallbackResultNotStored(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()
	var calls atomic.Int64

	racing := func(ctx context.Context) (any, error) {
		calls.Add(1)
		items, err := kit.catalog.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		if calls.Load() == 1 {
			if err := kit.engine.OnCatalogMutation(ctx); err != nil {
				return nil, err
			}
		}
		return items, nil
	}

	var out []Product
	for i := 0; i < 2; i++ {
		if err := kit.engine.CachedQuery(ctx, OpAll, nil, racing, &out); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("result computed across an invalidation must not be cached, calls = %d", calls.Load())
	}
	if err := kit.engine.CachedQuery(ctx, OpAll, nil, racing, &out); err != nil {
		t.Fatalf("query: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("second result should have been cached, calls = %d", calls.Load())
	}
}

func TestProductMutations(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	p, err := kit.engine.CreateProduct(ctx, sampleProduct("SKU-A"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := kit.engine.CreateProduct(ctx, sampleProduct("SKU-A")); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected duplicate sku, got %v", err)
	}
	if _, err := kit.engine.CreateProduct(ctx, sampleProduct("SKU-B")); err != nil {
		t.Fatalf("create second: %v", err)
	}

	active, err := kit.engine.ListActiveProducts(ctx)
	if err != nil || len(active) != 2 {
		t.Fatalf("active = %d, %v", len(active), err)
	}

	upd := sampleProduct("SKU-B")
	if _, err := kit.engine.UpdateProduct(ctx, p.ID, upd); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected sku conflict, got %v", err)
	}
	upd = sampleProduct("SKU-A")
	upd.Name = "Renamed"
	upd.Active = true
	got, err := kit.engine.UpdateProduct(ctx, p.ID, upd)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Renamed" || got.ID != p.ID {
		t.Fatalf("unexpected update result %+v", got)
	}
	if _, err := kit.engine.UpdateProduct(ctx, 999, upd); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := kit.engine.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	active, err = kit.engine.ListActiveProducts(ctx)
	if err != nil || len(active) != 1 {
		t.Fatalf("active after soft delete = %d, %v", len(active), err)
	}
	all, err := kit.engine.ListAllProducts(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("all after soft delete = %d, %v", len(all), err)
	}

	if err := kit.engine.PermanentlyDeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := kit.engine.GetProduct(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after hard delete, got %v", err)
	}
	if err := kit.engine.DeleteProduct(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	snap := kit.engine.Metrics()
	if snap.Counters[MetricCatalogMutation] != 5 {
		t.Fatalf("mutations = %d, want 5", snap.Counters[MetricCatalogMutation])
	}
	if snap.Counters[MetricCatalogMutationFailure] != 4 {
		t.Fatalf("mutation failures = %d, want 4", snap.Counters[MetricCatalogMutationFailure])
	}
}

func TestCreateProductValidation(t *testing.T) {
	kit := newTestKit(t, nil)
	bad := sampleProduct("SKU-X")
	bad.PriceCents = 0
	if _, err := kit.engine.CreateProduct(context.Background(), bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if kit.catalog.calls.Load() != 0 {
		t.Fatal("invalid product must not reach the store")
	}
}

func TestCatalogQueries(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	seed := []Product{
		{Name: "Laptop", Description: "Fast laptop", PriceCents: 99900, Quantity: 3, SKU: "L1", Category: "Electronics", Brand: "Acme", Active: true},
		{Name: "Mouse", Description: "Wireless", PriceCents: 2500, Quantity: 50, SKU: "M1", Category: "Electronics", Brand: "Globex", Active: true},
		{Name: "Desk", Description: "Oak desk", PriceCents: 25000, Quantity: 8, SKU: "D1", Category: "Furniture", Brand: "Acme", Active: true},
		{Name: "Old Laptop", Description: "Discontinued", PriceCents: 10000, Quantity: 1, SKU: "L0", Category: "Electronics", Brand: "Acme", Active: false},
	}
	for _, p := range seed {
		if _, err := kit.engine.CreateProduct(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.SKU, err)
		}
	}

	check := func(name string, items []Product, err error, want int) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(items) != want {
			t.Fatalf("%s: got %d items, want %d", name, len(items), want)
		}
	}

	items, err := kit.engine.ListProductsByCategory(ctx, "Electronics")
	check("category", items, err, 3)
	items, err = kit.engine.ListProductsByBrand(ctx, "Acme")
	check("brand", items, err, 3)
	items, err = kit.engine.SearchProducts(ctx, "LAPTOP")
	check("search", items, err, 1)
	items, err = kit.engine.ListProductsByPriceRange(ctx, 2000, 30000)
	check("price range", items, err, 2)
	items, err = kit.engine.ListLowStockProducts(ctx, -1)
	check("low stock default", items, err, 2)
	items, err = kit.engine.ListLowStockProducts(ctx, 5)
	check("low stock 5", items, err, 1)
	items, err = kit.engine.ListLatestProducts(ctx)
	check("latest", items, err, 3)
	if items[0].SKU != "D1" {
		t.Fatalf("latest first = %s, want D1", items[0].SKU)
	}

	if _, err := kit.engine.ListProductsByPriceRange(ctx, 500, 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, err := kit.engine.SearchProducts(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid keyword, got %v", err)
	}

	exists, err := kit.engine.ProductSkuExists(ctx, "L0")
	if err != nil || !exists {
		t.Fatalf("sku exists = %v, %v", exists, err)
	}
	p, err := kit.engine.GetProductBySku(ctx, "M1")
	if err != nil || p.Name != "Mouse" {
		t.Fatalf("by sku = %+v, %v", p, err)
	}
}

func TestListActiveProductsPage(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()
	for _, sku := range []string{"A", "B", "C"} {
		if _, err := kit.engine.CreateProduct(ctx, sampleProduct(sku)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page, err := kit.engine.ListActiveProductsPage(ctx, PageRequest{Page: 0, Size: 2})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 || page.Items[0].SKU != "A" {
		t.Fatalf("unexpected page %+v", page)
	}

	desc, err := kit.engine.ListActiveProductsPage(ctx, PageRequest{Page: 0, Size: 2, SortDir: "DESC"})
	if err != nil {
		t.Fatalf("desc page: %v", err)
	}
	if desc.Items[0].SKU != "C" {
		t.Fatalf("sort direction must be part of the cache key, first = %s", desc.Items[0].SKU)
	}

	if _, err := kit.engine.ListActiveProductsPage(ctx, PageRequest{SortField: "password"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid sort field, got %v", err)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	got, err := PageRequest{Page: -1, Size: 500}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := PageRequest{Page: 0, Size: 100, SortField: "id", SortDir: SortAsc}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.Offset() != 0 {
		t.Fatalf("offset = %d", got.Offset())
	}
	if (PageRequest{Page: 3, Size: 10}).Offset() != 30 {
		t.Fatal("offset mismatch")
	}

	if _, err := (PageRequest{Page: math.MaxInt / 10, Size: 10}).Normalize(); err != nil {
		t.Fatalf("largest representable page rejected: %v", err)
	}
	_, err = PageRequest{Page: 922337203685477580, Size: 100}.Normalize()
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "page" {
		t.Fatalf("expected page validation error, got %v", err)
	}
}

func TestListActiveProductsPageRejectsOverflowingPage(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()
	if _, err := kit.engine.CreateProduct(ctx, sampleProduct("P-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := kit.engine.ListActiveProductsPage(ctx, PageRequest{Page: math.MaxInt, Size: 2})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 1050: "10.50", -199: "-1.99"}
	for in, want := range cases {
		if got := FormatCents(in); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
}

package goCatalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/internal/flows"
)

// Query operation names. Each becomes the leading part of a cache fingerprint.
const (
	OpByID       = "id"
	OpBySku      = "sku"
	OpAll        = "all"
	OpActive     = "active"
	OpActivePage = "active_page"
	OpCategory   = "category"
	OpBrand      = "brand"
	OpSearch     = "search"
	OpPriceRange = "price_range"
	OpLowStock   = "low_stock"
	OpLatest     = "latest"
)

// CachedQuery serves the result of op(args) from the query cache, running
// fallback on a miss, and decodes it into out. The fingerprint is op alone
// or op:arg1_arg2..., e.g. "category:Electronics".
//
// A fallback error is returned unchanged. With negative caching on, an
// ErrNotFound result is cached and replayed on later calls.
func (e *Engine) CachedQuery(ctx context.Context, op string, args []any, fallback Fallback, out any) error {
	if err := e.ready(); err != nil {
		return err
	}

	timed := fallback
	if e.metrics.LatencyEnabled() {
		timed = func(ctx context.Context) (any, error) {
			start := time.Now()
			v, err := fallback(ctx)
			e.metrics.Observe(MetricQueryLatency, time.Since(start))
			return v, err
		}
	}

	res := flows.RunQuery(ctx, op, args, timed, out, e.flowDeps.Query)
	if res.Hit {
		e.metricInc(MetricCacheHit)
	} else {
		e.metricInc(MetricCacheMiss)
	}
	return res.Err
}

// OnCatalogMutation drops every cached query result. Call it after a catalog
// write has committed. Reads that started before the call cannot store their
// results afterwards.
func (e *Engine) OnCatalogMutation(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	_, err := e.invalidateCache(ctx)
	return err
}

// GetProduct returns the product with id, or ErrNotFound.
func (e *Engine) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := e.CachedQuery(ctx, OpByID, []any{id}, func(ctx context.Context) (any, error) {
		return found(e.catalog.Get(ctx, id))
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductBySku returns the product with sku, or ErrNotFound.
func (e *Engine) GetProductBySku(ctx context.Context, sku string) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, invalid("sku", "required")
	}
	var p Product
	err := e.CachedQuery(ctx, OpBySku, []any{sku}, func(ctx context.Context) (any, error) {
		return found(e.catalog.GetBySku(ctx, sku))
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAllProducts returns every product, active or not.
func (e *Engine) ListAllProducts(ctx context.Context) ([]Product, error) {
	return e.cachedList(ctx, OpAll, nil, e.catalog.ListAll)
}

// ListActiveProducts returns every active product.
func (e *Engine) ListActiveProducts(ctx context.Context) ([]Product, error) {
	return e.cachedList(ctx, OpActive, nil, e.catalog.ListActive)
}

// ListActiveProductsPage returns one page of active products after applying
// [PageRequest.Normalize].
func (e *Engine) ListActiveProductsPage(ctx context.Context, req PageRequest) (*ProductPage, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	var page ProductPage
	args := []any{req.Page, req.Size, req.SortField, req.SortDir}
	err = e.CachedQuery(ctx, OpActivePage, args, func(ctx context.Context) (any, error) {
		return e.catalog.ListActivePage(ctx, req)
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListProductsByCategory returns products in category.
func (e *Engine) ListProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalid("category", "required")
	}
	return e.cachedList(ctx, OpCategory, []any{category}, func(ctx context.Context) ([]Product, error) {
		return e.catalog.ListByCategory(ctx, category)
	})
}

// ListProductsByBrand returns products of brand.
func (e *Engine) ListProductsByBrand(ctx context.Context, brand string) ([]Product, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, invalid("brand", "required")
	}
	return e.cachedList(ctx, OpBrand, []any{brand}, func(ctx context.Context) ([]Product, error) {
		return e.catalog.ListByBrand(ctx, brand)
	})
}

// SearchProducts returns active products whose name or description contains
// keyword, ignoring case.
func (e *Engine) SearchProducts(ctx context.Context, keyword string) ([]Product, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, invalid("keyword", "required")
	}
	return e.cachedList(ctx, OpSearch, []any{keyword}, func(ctx context.Context) ([]Product, error) {
		return e.catalog.Search(ctx, keyword)
	})
}

// ListProductsByPriceRange returns active products priced within
// [minCents, maxCents].
func (e *Engine) ListProductsByPriceRange(ctx context.Context, minCents, maxCents int64) ([]Product, error) {
	if minCents < 0 || maxCents < minCents {
		return nil, invalid("price range", "need 0 <= min <= max")
	}
	args := []any{FormatCents(minCents), FormatCents(maxCents)}
	return e.cachedList(ctx, OpPriceRange, args, func(ctx context.Context) ([]Product, error) {
		return e.catalog.ListByPriceRange(ctx, minCents, maxCents)
	})
}

// ListLowStockProducts returns active products with quantity at or below
// threshold. A negative threshold selects Catalog.LowStockThreshold.
func (e *Engine) ListLowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	if threshold < 0 {
		threshold = e.config.Catalog.LowStockThreshold
	}
	return e.cachedList(ctx, OpLowStock, []any{threshold}, func(ctx context.Context) ([]Product, error) {
		return e.catalog.ListLowStock(ctx, threshold)
	})
}

// ListLatestProducts returns active products, newest first.
func (e *Engine) ListLatestProducts(ctx context.Context) ([]Product, error) {
	return e.cachedList(ctx, OpLatest, nil, e.catalog.ListLatest)
}

// ProductSkuExists reports whether any product, active or not, uses sku.
// The answer is never cached.
func (e *Engine) ProductSkuExists(ctx context.Context, sku string) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	return e.catalog.ExistsBySku(ctx, strings.TrimSpace(sku))
}

// CreateProduct persists p and invalidates the query cache. A SKU already in
// use returns ErrDuplicateKey.
func (e *Engine) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	p.SKU = strings.TrimSpace(p.SKU)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := e.mutate(ctx, "create", func(ctx context.Context) error {
		exists, err := e.catalog.ExistsBySku(ctx, p.SKU)
		if err != nil {
			return fmt.Errorf("check sku: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: product with SKU %s already exists", ErrDuplicateKey, p.SKU)
		}
		return e.catalog.Create(ctx, &p)
	}, &p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct overwrites the editable fields of product id with those of
// p. Changing the SKU to one already in use returns ErrDuplicateKey.
func (e *Engine) UpdateProduct(ctx context.Context, id int64, p Product) (*Product, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	p.SKU = strings.TrimSpace(p.SKU)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *Product
	err := e.mutate(ctx, "update", func(ctx context.Context) error {
		current, err := e.catalog.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.SKU != p.SKU {
			exists, err := e.catalog.ExistsBySku(ctx, p.SKU)
			if err != nil {
				return fmt.Errorf("check sku: %w", err)
			}
			if exists {
				return fmt.Errorf("%w: product with SKU %s already exists", ErrDuplicateKey, p.SKU)
			}
		}

		current.Name = p.Name
		current.Description = p.Description
		current.PriceCents = p.PriceCents
		current.Quantity = p.Quantity
		current.SKU = p.SKU
		current.Category = p.Category
		current.Brand = p.Brand
		current.ImageURL = p.ImageURL
		current.Active = p.Active
		if err := e.catalog.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	}, &id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct marks product id inactive. The row is kept.
func (e *Engine) DeleteProduct(ctx context.Context, id int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.mutate(ctx, "soft_delete", func(ctx context.Context) error {
		if _, err := e.catalog.Get(ctx, id); err != nil {
			return err
		}
		return e.catalog.SoftDelete(ctx, id)
	}, &id)
}

// PermanentlyDeleteProduct removes product id.
func (e *Engine) PermanentlyDeleteProduct(ctx context.Context, id int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.mutate(ctx, "hard_delete", func(ctx context.Context) error {
		if _, err := e.catalog.Get(ctx, id); err != nil {
			return err
		}
		return e.catalog.HardDelete(ctx, id)
	}, &id)
}

// mutate runs write and then invalidates the cache. id is read after write
// returns so creates can report the assigned key.
func (e *Engine) mutate(ctx context.Context, action string, write func(context.Context) error, id *int64) error {
	res := flows.RunMutation(ctx, write, e.flowDeps.Mutation)
	resource := func() string { return "product:" + strconv.FormatInt(*id, 10) }

	switch res.Failure {
	case flows.MutationFailureNone:
		e.metricInc(MetricCatalogMutation)
		e.emitAudit(ctx, auditEventCatalogMutation, true, subjectFromContext(ctx), resource(), nil, func() map[string]string {
			return map[string]string{"action": action}
		})
		return nil
	case flows.MutationFailureStore:
		e.metricInc(MetricCatalogMutationFailure)
		e.emitAudit(ctx, auditEventCatalogMutation, false, subjectFromContext(ctx), resource(), res.Err, func() map[string]string {
			return map[string]string{"action": action}
		})
		return res.Err
	default:
		e.logger.Error("catalog write committed but cache not invalidated",
			zap.String("action", action),
			zap.String("resource", resource()),
			zap.Error(res.Err),
		)
		return res.Err
	}
}

func (e *Engine) cachedList(ctx context.Context, op string, args []any, load func(context.Context) ([]Product, error)) ([]Product, error) {
	var out []Product
	err := e.CachedQuery(ctx, op, args, func(ctx context.Context) (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []Product{}
		}
		return items, nil
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

func found(p *Product, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

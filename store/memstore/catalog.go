package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	goCatalog "github.com/MrEthical07/goCatalog"
)

// Catalog is an in-memory product table keyed by ID.
type Catalog struct {
	now func() time.Time

	mu       sync.RWMutex
	products map[int64]goCatalog.Product
	bySku    map[string]int64
	nextID   int64
}

// NewCatalog returns an empty catalog. A nil now uses time.Now.
func NewCatalog(now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{
		now:      now,
		products: make(map[int64]goCatalog.Product),
		bySku:    make(map[string]int64),
	}
}

func (c *Catalog) Get(_ context.Context, id int64) (*goCatalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, goCatalog.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) GetBySku(ctx context.Context, sku string) (*goCatalog.Product, error) {
	c.mu.RLock()
	id, ok := c.bySku[sku]
	c.mu.RUnlock()
	if !ok {
		return nil, goCatalog.ErrNotFound
	}
	return c.Get(ctx, id)
}

func (c *Catalog) ListAll(context.Context) ([]goCatalog.Product, error) {
	return c.filter(func(goCatalog.Product) bool { return true }), nil
}

func (c *Catalog) ListActive(context.Context) ([]goCatalog.Product, error) {
	return c.filter(isActive), nil
}

func (c *Catalog) ListActivePage(_ context.Context, req goCatalog.PageRequest) (goCatalog.ProductPage, error) {
	items := c.filter(isActive)
	less, err := comparator(req.SortField)
	if err != nil {
		return goCatalog.ProductPage{}, err
	}
	slices.SortStableFunc(items, func(a, b goCatalog.Product) int {
		if r := less(a, b); r != 0 {
			if req.SortDir == goCatalog.SortDesc {
				return -r
			}
			return r
		}
		return cmp.Compare(a.ID, b.ID)
	})

	start := min(req.Offset(), len(items))
	end := min(start+req.Size, len(items))
	return goCatalog.NewProductPage(items[start:end], len(items), req), nil
}

func (c *Catalog) ListByCategory(_ context.Context, category string) ([]goCatalog.Product, error) {
	return c.filter(func(p goCatalog.Product) bool { return p.Category == category }), nil
}

func (c *Catalog) ListByBrand(_ context.Context, brand string) ([]goCatalog.Product, error) {
	return c.filter(func(p goCatalog.Product) bool { return p.Brand == brand }), nil
}

func (c *Catalog) Search(_ context.Context, keyword string) ([]goCatalog.Product, error) {
	keyword = strings.ToLower(keyword)
	return c.filter(func(p goCatalog.Product) bool {
		return p.Active && (strings.Contains(strings.ToLower(p.Name), keyword) ||
			strings.Contains(strings.ToLower(p.Description), keyword))
	}), nil
}

func (c *Catalog) ListByPriceRange(_ context.Context, minCents, maxCents int64) ([]goCatalog.Product, error) {
	return c.filter(func(p goCatalog.Product) bool {
		return p.Active && p.PriceCents >= minCents && p.PriceCents <= maxCents
	}), nil
}

func (c *Catalog) ListLowStock(_ context.Context, threshold int) ([]goCatalog.Product, error) {
	return c.filter(func(p goCatalog.Product) bool { return p.Active && p.Quantity <= threshold }), nil
}

func (c *Catalog) ListLatest(context.Context) ([]goCatalog.Product, error) {
	items := c.filter(isActive)
	slices.SortStableFunc(items, func(a, b goCatalog.Product) int {
		if r := b.CreatedAt.Compare(a.CreatedAt); r != 0 {
			return r
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return items, nil
}

func (c *Catalog) Create(_ context.Context, p *goCatalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.bySku[p.SKU]; taken {
		return fmt.Errorf("%w: sku %s", goCatalog.ErrDuplicateKey, p.SKU)
	}
	c.nextID++
	p.ID = c.nextID
	p.CreatedAt = c.now().UTC()
	p.UpdatedAt = p.CreatedAt
	c.products[p.ID] = *p
	c.bySku[p.SKU] = p.ID
	return nil
}

func (c *Catalog) Update(_ context.Context, p *goCatalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.products[p.ID]
	if !ok {
		return goCatalog.ErrNotFound
	}
	if owner, taken := c.bySku[p.SKU]; taken && owner != p.ID {
		return fmt.Errorf("%w: sku %s", goCatalog.ErrDuplicateKey, p.SKU)
	}
	delete(c.bySku, old.SKU)
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = c.now().UTC()
	c.products[p.ID] = *p
	c.bySku[p.SKU] = p.ID
	return nil
}

func (c *Catalog) SoftDelete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return goCatalog.ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = c.now().UTC()
	c.products[id] = p
	return nil
}

func (c *Catalog) HardDelete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return goCatalog.ErrNotFound
	}
	delete(c.products, id)
	delete(c.bySku, p.SKU)
	return nil
}

func (c *Catalog) ExistsBySku(_ context.Context, sku string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bySku[sku]
	return ok, nil
}

// Len returns the number of stored products, active or not.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func (c *Catalog) filter(keep func(goCatalog.Product) bool) []goCatalog.Product {
	c.mu.RLock()
	out := make([]goCatalog.Product, 0, len(c.products))
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b goCatalog.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func isActive(p goCatalog.Product) bool { return p.Active }

func comparator(field string) (func(a, b goCatalog.Product) int, error) {
	switch field {
	case "", "id":
		return func(a, b goCatalog.Product) int { return cmp.Compare(a.ID, b.ID) }, nil
	case "name":
		return func(a, b goCatalog.Product) int { return strings.Compare(a.Name, b.Name) }, nil
	case "price":
		return func(a, b goCatalog.Product) int { return cmp.Compare(a.PriceCents, b.PriceCents) }, nil
	case "quantity":
		return func(a, b goCatalog.Product) int { return cmp.Compare(a.Quantity, b.Quantity) }, nil
	case "sku":
		return func(a, b goCatalog.Product) int { return strings.Compare(a.SKU, b.SKU) }, nil
	case "category":
		return func(a, b goCatalog.Product) int { return strings.Compare(a.Category, b.Category) }, nil
	case "brand":
		return func(a, b goCatalog.Product) int { return strings.Compare(a.Brand, b.Brand) }, nil
	case "createdAt":
		return func(a, b goCatalog.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }, nil
	case "updatedAt":
		return func(a, b goCatalog.Product) int { return a.UpdatedAt.Compare(b.UpdatedAt) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported sort field %s", goCatalog.ErrInvalidInput, field)
}

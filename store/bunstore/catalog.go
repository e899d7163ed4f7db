package bunstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	goCatalog "github.com/MrEthical07/goCatalog"
)

// Catalog implements goCatalog.CatalogStore on the products table.
type Catalog struct {
	db  bun.IDB
	now func() time.Time
}

// NewCatalog wraps db. A nil now uses time.Now.
func NewCatalog(db bun.IDB, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{db: db, now: now}
}

func (c *Catalog) Get(ctx context.Context, id int64) (*goCatalog.Product, error) {
	return c.getWhere(ctx, "id = ?", id)
}

func (c *Catalog) GetBySku(ctx context.Context, sku string) (*goCatalog.Product, error) {
	return c.getWhere(ctx, "sku = ?", sku)
}

func (c *Catalog) getWhere(ctx context.Context, query string, arg any) (*goCatalog.Product, error) {
	m := new(productModel)
	if err := c.db.NewSelect().Model(m).Where(query, arg).Scan(ctx); err != nil {
		return nil, mapError("get product", err)
	}
	p := m.toProduct()
	return &p, nil
}

func (c *Catalog) ListAll(ctx context.Context) ([]goCatalog.Product, error) {
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (c *Catalog) ListActive(ctx context.Context) ([]goCatalog.Product, error) {
	return c.list(ctx, activeOnly)
}

func (c *Catalog) ListActivePage(ctx context.Context, req goCatalog.PageRequest) (goCatalog.ProductPage, error) {
	column, ok := sortColumns[req.SortField]
	if !ok {
		return goCatalog.ProductPage{}, fmt.Errorf("%w: unsupported sort field %s", goCatalog.ErrInvalidInput, req.SortField)
	}
	dir := "ASC"
	if req.SortDir == goCatalog.SortDesc {
		dir = "DESC"
	}

	var rows []productModel
	total, err := c.db.NewSelect().
		Model(&rows).
		Where("active = ?", true).
		OrderExpr("? "+dir, bun.Ident(column)).
		OrderExpr("id " + dir).
		Limit(req.Size).
		Offset(req.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return goCatalog.ProductPage{}, mapError("list product page", err)
	}
	return goCatalog.NewProductPage(toProducts(rows), total, req), nil
}

func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]goCatalog.Product, error) {
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("category = ?", category)
	})
}

func (c *Catalog) ListByBrand(ctx context.Context, brand string) ([]goCatalog.Product, error) {
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("brand = ?", brand)
	})
}

func (c *Catalog) Search(ctx context.Context, keyword string) ([]goCatalog.Product, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return activeOnly(q).WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(name) LIKE ?", pattern).
				WhereOr("LOWER(description) LIKE ?", pattern)
		})
	})
}

func (c *Catalog) ListByPriceRange(ctx context.Context, minCents, maxCents int64) ([]goCatalog.Product, error) {
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return activeOnly(q).Where("price_cents BETWEEN ? AND ?", minCents, maxCents)
	})
}

func (c *Catalog) ListLowStock(ctx context.Context, threshold int) ([]goCatalog.Product, error) {
	return c.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return activeOnly(q).Where("quantity <= ?", threshold)
	})
}

func (c *Catalog) ListLatest(ctx context.Context) ([]goCatalog.Product, error) {
	var rows []productModel
	err := c.db.NewSelect().
		Model(&rows).
		Where("active = ?", true).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("list latest products", err)
	}
	return toProducts(rows), nil
}

func (c *Catalog) Create(ctx context.Context, p *goCatalog.Product) error {
	now := c.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m := fromProduct(p)
	m.ID = 0
	if _, err := c.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return mapError("insert product", err)
	}
	p.ID = m.ID
	return nil
}

func (c *Catalog) Update(ctx context.Context, p *goCatalog.Product) error {
	p.UpdatedAt = c.now().UTC()
	res, err := c.db.NewUpdate().
		Model(fromProduct(p)).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapError("update product", err)
	}
	return requireRow(res)
}

func (c *Catalog) SoftDelete(ctx context.Context, id int64) error {
	res, err := c.db.NewUpdate().
		Model((*productModel)(nil)).
		Set("active = ?", false).
		Set("updated_at = ?", c.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError("soft delete product", err)
	}
	return requireRow(res)
}

func (c *Catalog) HardDelete(ctx context.Context, id int64) error {
	res, err := c.db.NewDelete().
		Model((*productModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError("delete product", err)
	}
	return requireRow(res)
}

func (c *Catalog) ExistsBySku(ctx context.Context, sku string) (bool, error) {
	exists, err := c.db.NewSelect().Model((*productModel)(nil)).Where("sku = ?", sku).Exists(ctx)
	if err != nil {
		return false, mapError("check sku", err)
	}
	return exists, nil
}

func (c *Catalog) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]goCatalog.Product, error) {
	var rows []productModel
	if err := filter(c.db.NewSelect().Model(&rows)).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError("list products", err)
	}
	return toProducts(rows), nil
}

func activeOnly(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("active = ?", true)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return goCatalog.ErrNotFound
	}
	return nil
}

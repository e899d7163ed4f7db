package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(upCreateProducts, downCreateProducts)
}

func upCreateProducts(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*productModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	for _, idx := range []struct{ name, column string }{
		{"idx_products_category", "category"},
		{"idx_products_brand", "brand"},
		{"idx_products_active", "active"},
	} {
		if _, err := db.NewCreateIndex().
			Model((*productModel)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func downCreateProducts(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*productModel)(nil)).IfExists().Exec(ctx)
	return err
}

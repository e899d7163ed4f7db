package bunstore

import (
	"time"

	"github.com/uptrace/bun"

	goCatalog "github.com/MrEthical07/goCatalog"
)

type productModel struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	PriceCents  int64     `bun:"price_cents,notnull"`
	Quantity    int       `bun:"quantity,notnull,default:0"`
	SKU         string    `bun:"sku,notnull,unique"`
	Category    string    `bun:"category"`
	Brand       string    `bun:"brand"`
	ImageURL    string    `bun:"image_url"`
	Active      bool      `bun:"active,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func fromProduct(p *goCatalog.Product) *productModel {
	return &productModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Quantity:    p.Quantity,
		SKU:         p.SKU,
		Category:    p.Category,
		Brand:       p.Brand,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (m *productModel) toProduct() goCatalog.Product {
	return goCatalog.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		Quantity:    m.Quantity,
		SKU:         m.SKU,
		Category:    m.Category,
		Brand:       m.Brand,
		ImageURL:    m.ImageURL,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func toProducts(rows []productModel) []goCatalog.Product {
	out := make([]goCatalog.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].toProduct()
	}
	return out
}

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type userRoleModel struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID   int64  `bun:"user_id,pk"`
	Role     string `bun:"role,pk"`
	Position int    `bun:"position,notnull"`
}

// sortColumns maps PageRequest sort fields to columns.
var sortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"price":     "price_cents",
	"quantity":  "quantity",
	"sku":       "sku",
	"category":  "category",
	"brand":     "brand",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

package goCatalog

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goCatalog/internal/audit"
	"github.com/MrEthical07/goCatalog/permission"
)

// Identity is an authenticated principal: a subject and its ordered roles.
type Identity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// HasRole reports whether the identity carries role, compared in canonical
// form ("ROLE_ADMIN" equals "admin").
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	want := permission.NormalizeRole(role)
	return slices.ContainsFunc(id.Roles, func(r string) bool {
		return permission.NormalizeRole(r) == want
	})
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"type"`
	Subject      string   `json:"username"`
	Roles        []string `json:"roles"`
}

// SignUpRequest is the input to [Engine.Register].
type SignUpRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// NewUser is handed to [CredentialStore.CreateUser] with the password
// already hashed.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
}

// Product is one catalog item. Prices are in minor currency units.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Quantity    int       `json:"quantity"`
	SKU         string    `json:"sku"`
	Category    string    `json:"category,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields a catalog write requires.
func (p *Product) Validate() error {
	switch {
	case p == nil:
		return invalid("product", "missing")
	case strings.TrimSpace(p.Name) == "":
		return invalid("name", "required")
	case len(p.Name) > 200:
		return invalid("name", "at most 200 characters")
	case strings.TrimSpace(p.SKU) == "":
		return invalid("sku", "required")
	case len(p.SKU) > 64:
		return invalid("sku", "at most 64 characters")
	case p.PriceCents <= 0:
		return invalid("price", "must be positive")
	case p.Quantity < 0:
		return invalid("quantity", "must not be negative")
	}
	return nil
}

// FormatCents renders minor units as a fixed two-decimal amount, e.g. 1050 as "10.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Sort directions for [PageRequest].
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var sortableFields = []string{"id", "name", "price", "quantity", "sku", "category", "brand", "createdAt", "updatedAt"}

// PageRequest selects one page of active products.
type PageRequest struct {
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	SortField string `json:"sortBy"`
	SortDir   string `json:"sortDir"`
}

// Normalize fills defaults (page 0, size 10, sort id asc), clamps the size,
// and rejects sort fields outside the allow-list and pages whose offset
// would overflow.
func (r PageRequest) Normalize() (PageRequest, error) {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = defaultPageSize
	}
	if r.Size > maxPageSize {
		r.Size = maxPageSize
	}
	if r.Page > math.MaxInt/r.Size {
		return r, invalid("page", "out of range")
	}
	if r.SortField == "" {
		r.SortField = "id"
	}
	if !slices.Contains(sortableFields, r.SortField) {
		return r, invalid("sortBy", "unsupported field "+r.SortField)
	}
	switch strings.ToLower(r.SortDir) {
	case "", SortAsc:
		r.SortDir = SortAsc
	case SortDesc:
		r.SortDir = SortDesc
	default:
		return r, invalid("sortDir", "must be asc or desc")
	}
	return r, nil
}

// Offset returns the number of rows preceding the page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// ProductPage is one page of results plus totals.
type ProductPage struct {
	Items      []Product `json:"content"`
	Total      int       `json:"totalElements"`
	Page       int       `json:"number"`
	Size       int       `json:"size"`
	TotalPages int       `json:"totalPages"`
}

// NewProductPage computes TotalPages from total and req.Size.
func NewProductPage(items []Product, total int, req PageRequest) ProductPage {
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	if items == nil {
		items = []Product{}
	}
	return ProductPage{Items: items, Total: total, Page: req.Page, Size: req.Size, TotalPages: pages}
}

// CredentialStore looks up and verifies users.
//
// VerifyCredentials returns ErrInvalidCredentials or ErrNotFound for
// rejected logins; any other error is treated as a backend failure.
type CredentialStore interface {
	VerifyCredentials(ctx context.Context, usernameOrEmail, password string) (Identity, error)
	FindBySubject(ctx context.Context, subject string) (Identity, error)
	CreateUser(ctx context.Context, user NewUser) (Identity, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// CatalogStore persists products. Lookups of absent rows return ErrNotFound;
// uniqueness violations return ErrDuplicateKey. Search, price range, low
// stock, and latest consider active products only.
type CatalogStore interface {
	Get(ctx context.Context, id int64) (*Product, error)
	GetBySku(ctx context.Context, sku string) (*Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	ListActive(ctx context.Context) ([]Product, error)
	ListActivePage(ctx context.Context, req PageRequest) (ProductPage, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	ListByBrand(ctx context.Context, brand string) ([]Product, error)
	Search(ctx context.Context, keyword string) ([]Product, error)
	ListByPriceRange(ctx context.Context, minCents, maxCents int64) ([]Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
	ListLatest(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
	ExistsBySku(ctx context.Context, sku string) (bool, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs each event through a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
var NewJSONWriterSink = internalaudit.NewJSONWriterSink

// NewZapSink returns a [ZapSink] logging under the "audit" name.
var NewZapSink = internalaudit.NewZapSink

// Package httpapi exposes the catalog engine over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/middleware"
	"github.com/MrEthical07/goCatalog/permission"
)

// RouterOptions controls the construction of the catalog HTTP router.
type RouterOptions struct {
	Engine         *goCatalog.Engine
	Logger         *zap.Logger
	MetricsHandler http.Handler
	CORSOptions    *cors.Options
	Version        string
}

// DefaultCORSOptions allows any origin to call the API with a bearer token.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}
}

// NewRouter mounts the auth and product handlers.
//
//	POST   /auth/login, /auth/register, /auth/refresh
//	GET    /products, /products/page, /products/{id}, /products/sku/{sku},
//	       /products/category/{category}, /products/brand/{brand},
//	       /products/search, /products/price-range, /products/latest
//	GET    /products/low-stock                       (ADMIN)
//	POST   /products, PUT/DELETE /products/{id},
//	DELETE /products/{id}/permanent                  (ADMIN)
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{engine: opts.Engine, logger: logger, version: opts.Version}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(clientIP)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	r.Get("/", h.home)
	r.Get("/health", h.health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/refresh", h.refresh)
	})

	admin := middleware.RequireRole(opts.Engine, permission.RoleAdmin, middleware.WithErrorHandler(h.guardError))

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listActive)
		r.Get("/page", h.listPage)
		r.Get("/sku/{sku}", h.getBySku)
		r.Get("/category/{category}", h.listByCategory)
		r.Get("/brand/{brand}", h.listByBrand)
		r.Get("/search", h.search)
		r.Get("/price-range", h.listByPriceRange)
		r.Get("/latest", h.listLatest)
		r.Get("/{id}", h.getByID)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/low-stock", h.listLowStock)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.softDelete)
			r.Delete("/{id}/permanent", h.hardDelete)
		})
	})

	return r
}

type handlers struct {
	engine  *goCatalog.Engine
	logger  *zap.Logger
	version string
}

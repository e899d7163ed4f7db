package httpapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	goCatalog "github.com/MrEthical07/goCatalog"
)

func (h *handlers) listActive(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.engine.ListActiveProducts(r.Context()))
}

func (h *handlers) listPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), "page", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	size, err := intParam(q.Get("size"), "size", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.engine.ListActiveProductsPage(r.Context(), goCatalog.PageRequest{
		Page:      page,
		Size:      size,
		SortField: q.Get("sortBy"),
		SortDir:   q.Get("sortDir"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.engine.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) getBySku(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.GetProductBySku(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) listByCategory(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.engine.ListProductsByCategory(r.Context(), chi.URLParam(r, "category")))
}

func (h *handlers) listByBrand(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.engine.ListProductsByBrand(r.Context(), chi.URLParam(r, "brand")))
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeStatus(w, http.StatusBadRequest, "keyword is required", nil)
		return
	}
	h.writeList(w, r)(h.engine.SearchProducts(r.Context(), keyword))
}

func (h *handlers) listByPriceRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minCents, err := parseCents(q.Get("minPrice"), "minPrice")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	maxCents, err := parseCents(q.Get("maxPrice"), "maxPrice")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeList(w, r)(h.engine.ListProductsByPriceRange(r.Context(), minCents, maxCents))
}

func (h *handlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := intParam(r.URL.Query().Get("threshold"), "threshold", -1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeList(w, r)(h.engine.ListLowStockProducts(r.Context(), threshold))
}

func (h *handlers) listLatest(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.engine.ListLatestProducts(r.Context()))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	// Absent "active" means active.
	p := goCatalog.Product{Active: true}
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.engine.CreateProduct(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p := goCatalog.Product{Active: true}
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.engine.UpdateProduct(r.Context(), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) softDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteWith(w, r, h.engine.DeleteProduct)
}

func (h *handlers) hardDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteWith(w, r, h.engine.PermanentlyDeleteProduct)
}

func (h *handlers) deleteWith(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeList returns a sink for a (products, error) pair so list handlers stay
// one line.
func (h *handlers) writeList(w http.ResponseWriter, r *http.Request) func([]goCatalog.Product, error) {
	return func(products []goCatalog.Product, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if products == nil {
			products = []goCatalog.Product{}
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &goCatalog.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func intParam(raw, field string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &goCatalog.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

// parseCents reads a decimal amount such as "10", "10.5", or "10.50" as
// minor units.
func parseCents(raw, field string) (int64, error) {
	invalid := &goCatalog.ValidationError{Field: field, Reason: "must be a decimal amount with at most two fraction digits"}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &goCatalog.ValidationError{Field: field, Reason: "required"}
	}
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if !digits(whole) || (hasFrac && !digits(frac)) {
		return 0, invalid
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, invalid
	}

	var cents int64
	if hasFrac {
		if len(frac) > 2 {
			return 0, invalid
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.ParseInt(frac, 10, 64)
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, &goCatalog.ValidationError{Field: field, Reason: "out of range"}
	}
	return units*100 + cents, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductDTO struct {
	domain.Product
	Price string `json:"price"`
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, ProductDTO{Product: p, Price: domain.FormatCents(p.PriceCents)})
	}
	return out
}

// GET /api/v1/products?category=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.ByCategory(r.URL.Query().Get("category"))
	respondJSON(w, http.StatusOK, toProductDTOs(products))
}

// GET /api/v1/products/{product_id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.ByID(chi.URLParam(r, "product_id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ProductDTO{Product: p, Price: domain.FormatCents(p.PriceCents)})
}

// GET /api/v1/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.Categories())
}

package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

const maxQuantity = 99

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	domain.CartLine
	Total string `json:"total"`
}

type CartResponseDTO struct {
	Lines         []CartLineDTO `json:"lines"`
	ItemCount     int           `json:"item_count"`
	SubtotalCents int64         `json:"subtotal_cents"`
	Subtotal      string        `json:"subtotal"`
	IsOpen        bool          `json:"is_open"`
	CheckingOut   bool          `json:"checking_out"`
}

func (h *Handler) cartView() CartResponseDTO {
	lines := h.cart.Lines()
	dto := CartResponseDTO{
		Lines:       make([]CartLineDTO, 0, len(lines)),
		IsOpen:      h.cart.IsOpen(),
		CheckingOut: h.checkout.CheckingOut(),
	}
	for _, l := range lines {
		dto.Lines = append(dto.Lines, CartLineDTO{CartLine: l, Total: domain.FormatCents(l.TotalCents())})
	}
	// totals come from the same snapshot as the lines
	dto.ItemCount = domain.ItemCount(lines)
	dto.SubtotalCents = domain.SubtotalCents(lines)
	dto.Subtotal = domain.FormatCents(dto.SubtotalCents)
	return dto
}

// GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartView())
}

// POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity < 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	p, err := h.catalog.ByID(req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
		return
	}
	if !p.InStock {
		respondError(w, http.StatusConflict, "out_of_stock", p.Name+" is out of stock")
		return
	}

	if req.Quantity == 0 {
		h.cart.AddOne(p)
	} else {
		h.cart.Add(p, req.Quantity)
	}
	respondJSON(w, http.StatusCreated, h.cartView())
}

// PUT /api/v1/cart/items/{product_id}
// A quantity of zero removes the line.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	h.cart.SetQuantity(productID, req.Quantity)
	respondJSON(w, http.StatusOK, h.cartView())
}

// DELETE /api/v1/cart/items/{product_id}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cart.Remove(chi.URLParam(r, "product_id"))
	respondJSON(w, http.StatusOK, h.cartView())
}

// DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	respondJSON(w, http.StatusOK, h.cartView())
}

func (h *Handler) OpenDrawer(w http.ResponseWriter, r *http.Request) {
	h.cart.Open()
	respondJSON(w, http.StatusOK, h.cartView())
}

func (h *Handler) CloseDrawer(w http.ResponseWriter, r *http.Request) {
	h.cart.Close()
	respondJSON(w, http.StatusOK, h.cartView())
}

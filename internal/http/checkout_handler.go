package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// The processor substitutes this placeholder with the session token.
const sessionTokenPlaceholder = "{CHECKOUT_SESSION_ID}"

type CheckoutResponseDTO struct {
	URL string `json:"url"`
}

type CancelResponseDTO struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Cart    CartResponseDTO `json:"cart"`
}

// POST /api/v1/checkout
// Responds 303 to the hosted payment page.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	successURL := h.publicBaseURL + "/success?" + session.QueryParam + "=" + sessionTokenPlaceholder
	cancelURL := h.publicBaseURL + "/cancel"

	var target string
	nav := checkout.NavigatorFunc(func(url string) { target = url })

	err := h.checkout.Checkout(r.Context(), successURL, cancelURL, nav)
	switch {
	case err == nil:
		w.Header().Set("Location", target)
		respondJSON(w, http.StatusSeeOther, CheckoutResponseDTO{URL: target})
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrBackendNotReady):
		respondError(w, http.StatusServiceUnavailable, "backend_not_ready", err.Error())
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	default:
		respondError(w, http.StatusBadGateway, "checkout_failed", err.Error())
	}
}

// GET /success?session_id=
// The request context is the page lifetime: a client that disconnects
// before the lookup finishes gets no transition. A page still loading when
// the wait runs out answers 504 with the loading view.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.resolveTimeout)
	defer cancel()

	view := h.resolver.Resolve(ctx, r.URL)
	if view.State.IsTerminal() {
		respondJSON(w, http.StatusOK, view)
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		h.log.WithField("request_id", getRequestID(r.Context())).Warn("return page timed out waiting for the backend")
		respondJSON(w, http.StatusGatewayTimeout, view)
	}
}

// GET /cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CancelResponseDTO{
		Status:  "cancelled",
		Message: "checkout was cancelled, your cart has been kept",
		Cart:    h.cartView(),
	})
}

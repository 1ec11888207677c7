package http

import (
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/notify"
)

type LoginRequestDTO struct {
	Principal string `json:"principal"`
}

type IdentityDTO struct {
	Principal     string `json:"principal"`
	Authenticated bool   `json:"authenticated"`
}

func (h *Handler) identityView() IdentityDTO {
	id := h.identity.Identity()
	return IdentityDTO{Principal: id.Principal(), Authenticated: id.IsAuthenticated()}
}

// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.identityView())
}

// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	principal := strings.TrimSpace(req.Principal)
	if principal == "" {
		respondError(w, http.StatusBadRequest, "invalid_principal", "principal is required")
		return
	}

	h.identity.Login(principal)
	respondJSON(w, http.StatusOK, h.identityView())
}

// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.identity.Logout()
	respondJSON(w, http.StatusOK, h.identityView())
}

// GET /api/v1/notifications?drain=true
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	var items []notify.Notification
	if r.URL.Query().Get("drain") == "true" {
		items = h.feed.Drain()
	} else {
		items = h.feed.Recent()
	}
	if items == nil {
		items = []notify.Notification{}
	}
	respondJSON(w, http.StatusOK, items)
}

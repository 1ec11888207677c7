package cartapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
)

// PrincipalHeader carries the caller's principal on authenticated calls.
const PrincipalHeader = "X-Principal"

type Carts interface {
	GetCart(ctx context.Context, owner string) (*domain.RemoteCartRecord, error)
	SaveCart(ctx context.Context, owner string, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, owner string) error
}

type Checkout interface {
	CreateSession(ctx context.Context, principal *string, items []domain.LineItem, successURL, cancelURL string) (*domain.CheckoutSession, error)
	Status(ctx context.Context, id string) (domain.SessionStatus, error)
	Configured() bool
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	carts    Carts
	checkout Checkout
	checks   map[string]HealthCheck
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewHandler(carts Carts, checkout Checkout, checks map[string]HealthCheck, timeout time.Duration, log logrus.FieldLogger) *Handler {
	return &Handler{
		carts:    carts,
		checkout: checkout,
		checks:   checks,
		timeout:  timeout,
		log:      log.WithField("component", "cartapi"),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type SaveCartRequestDTO struct {
	Lines []domain.CartLine `json:"lines"`
}

type CreateSessionRequestDTO struct {
	Items      []domain.LineItem `json:"items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
}

type CreateSessionResponseDTO struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func NewRouter(h *Handler, maxBodySize int64) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	if maxBodySize > 0 {
		r.Use(middleware.RequestSize(maxBodySize))
	}

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts/{principal}", func(r chi.Router) {
			r.Use(ownerOnly)
			r.Get("/", h.GetCart)
			r.Put("/", h.SaveCart)
			r.Delete("/", h.DeleteCart)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Get("/configured", h.Configured)
			r.Post("/sessions", h.CreateSession)
			r.Get("/sessions/{id}/status", h.SessionStatus)
		})
	})
	return r
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.WithError(err).WithField("dependency", name).Warn("health check failed")
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	respondJSON(w, code, status)
}

// GET /api/v1/carts/{principal}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	record, err := h.carts.GetCart(ctx, chi.URLParam(r, "principal"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// PUT /api/v1/carts/{principal}
func (h *Handler) SaveCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SaveCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.SaveCart(ctx, chi.URLParam(r, "principal"), req.Lines); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/carts/{principal}
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.carts.DeleteCart(ctx, chi.URLParam(r, "principal"))
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/checkout/configured
func (h *Handler) Configured(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"configured": h.checkout.Configured()})
}

// POST /api/v1/checkout/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var principal *string
	if p := r.Header.Get(PrincipalHeader); domain.NewIdentity(p).IsAuthenticated() {
		principal = &p
	}

	session, err := h.checkout.CreateSession(ctx, principal, req.Items, req.SuccessURL, req.CancelURL)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreateSessionResponseDTO{ID: session.ID, URL: session.URL})
}

// GET /api/v1/checkout/sessions/{id}/status
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.checkout.Status(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ownerOnly rejects cart access by anyone but the owner.
func ownerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := chi.URLParam(r, "principal")
		caller := r.Header.Get(PrincipalHeader)
		if !domain.NewIdentity(caller).IsAuthenticated() {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing principal")
			return
		}
		if caller != owner {
			respondError(w, http.StatusForbidden, "permission_denied", "cart belongs to another principal")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
		pe     *payment.ProcessorError
	)
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, payment.ErrSessionNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidOwner),
		errors.Is(err, service.ErrInvalidLine),
		errors.Is(err, payment.ErrNoLineItems),
		errors.Is(err, payment.ErrInvalidItem),
		errors.Is(err, payment.ErrMissingURL):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, payment.ErrNotConfigured):
		status, code = http.StatusServiceUnavailable, "processor_not_configured"
	case errors.Is(err, payment.ErrProcessorUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.As(err, &pe):
		status, code = http.StatusBadGateway, "processor_error"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	entry := h.log.WithError(err).WithField("path", r.URL.Path).WithField("request_id", middleware.GetReqID(r.Context()))
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
		respondError(w, status, code, http.StatusText(status))
		return
	}
	entry.Debug("request rejected")
	respondError(w, status, code, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("request served")
		})
	}
}

package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/identity"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// Handler serves the storefront's UI-facing JSON API.
type Handler struct {
	catalog  *catalog.Catalog
	cart     *cart.Store
	identity *identity.Session
	checkout *checkout.Initiator
	resolver *session.Resolver
	feed     *notify.Feed
	log      logrus.FieldLogger

	publicBaseURL  string
	resolveTimeout time.Duration
}

type Deps struct {
	Catalog  *catalog.Catalog
	Cart     *cart.Store
	Identity *identity.Session
	Checkout *checkout.Initiator
	Resolver *session.Resolver
	Feed     *notify.Feed
	Log      logrus.FieldLogger

	// PublicBaseURL is where the processor sends the shopper back to.
	PublicBaseURL string
	// ResolveTimeout bounds the return page's wait for the backend.
	ResolveTimeout time.Duration
}

func NewHandler(d Deps) *Handler {
	if d.ResolveTimeout <= 0 {
		d.ResolveTimeout = 30 * time.Second
	}
	return &Handler{
		catalog:  d.Catalog,
		cart:     d.Cart,
		identity: d.Identity,
		checkout: d.Checkout,
		resolver: d.Resolver,
		feed:     d.Feed,
		log:      d.Log.WithField("component", "http"),

		publicBaseURL:  strings.TrimRight(d.PublicBaseURL, "/"),
		resolveTimeout: d.ResolveTimeout,
	}
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.log))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/products", h.ListProducts)
			r.Get("/products/{product_id}", h.GetProduct)
			r.Get("/categories", h.ListCategories)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddItem)
				r.Put("/items/{product_id}", h.UpdateQuantity)
				r.Delete("/items/{product_id}", h.RemoveItem)
				r.Post("/open", h.OpenDrawer)
				r.Post("/close", h.CloseDrawer)
			})

			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", h.Me)
				r.Post("/login", h.Login)
				r.Post("/logout", h.Logout)
			})

			r.Get("/notifications", h.Notifications)
			r.Post("/checkout", h.Checkout)
		})

		r.Get("/cancel", h.Cancel)
	})

	// The return page bounds its own wait and answers 504 itself.
	r.Get("/success", h.Success)

	return r
}

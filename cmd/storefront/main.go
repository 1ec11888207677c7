package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/identity"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/reconciler"
	"github.com/fjod/go_cart/storefront/internal/session"
)

func main() {
	config.Load()
	cfg := config.LoadStorefront()

	log := logger.New(cfg.LogLevel)
	tp := logger.InitTracing(log, cfg.EnableTracing)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	products, err := catalog.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load product catalog")
	}

	client := backend.NewClient(cfg.BackendURL, log,
		backend.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout))
	go func() {
		if err := client.Connect(ctx, cfg.ReadyPollInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("backend connection failed")
		}
	}()

	feed := notify.NewFeed(cfg.NotificationLimit, log)

	rec := reconciler.New(client, log, reconciler.Options{
		LoadTimeout:  cfg.LoadTimeout,
		WriteTimeout: cfg.WriteThroughTimeout,
	})
	store := cart.NewStore(rec, feed)
	rec.Bind(store)
	go rec.Run(ctx)

	ident := identity.NewSession(log)
	ident.Subscribe(rec.SetIdentity)

	handler := h.NewHandler(h.Deps{
		Catalog:  products,
		Cart:     store,
		Identity: ident,
		Checkout: checkout.NewInitiator(store, client, ident, feed, log),
		Resolver: session.NewResolver(client, store, log),
		Feed:     feed,
		Log:      log,

		PublicBaseURL:  cfg.PublicBaseURL,
		ResolveTimeout: cfg.ResolveTimeout,
	})
	r := h.NewRouter(handler, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := rec.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("pending cart writes abandoned")
	}
	if tp != nil {
		_ = tp.Shutdown(shutdownCtx)
	}
	log.Info("storefront stopped")
}

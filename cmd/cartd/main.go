package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartapi"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
)

func main() {
	config.Load()
	cfg := config.LoadBackend()

	log := logger.New(cfg.LogLevel)
	tp := logger.InitTracing(log, cfg.EnableTracing)
	log.Info("cartd starting...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Set up MongoDB connection
	repo, err := repository.Open(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.WithError(err).Fatal("failed to open cart store")
	}
	log.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("redis connection failed")
	}
	log.Info("redis ping succeeded")

	carts := service.NewCartService(repo, cache.NewRedisCache(redisClient), log)

	// Database setup
	creds := &payment.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	sessions, err := payment.NewRepository(creds)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer sessions.Close()
	if err := sessions.RunMigrations(creds); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	gateway := payment.NewStripeGateway(payment.GatewayConfig{
		BaseURL:          cfg.ProcessorURL,
		SecretKey:        cfg.ProcessorSecretKey,
		AllowedCountries: cfg.AllowedCountries,
	}, log)
	if !gateway.Configured() {
		log.Warn("payment processor secret key not set; checkout is disabled")
	}
	checkouts := payment.NewCheckoutService(sessions, gateway, gateway.Configured, log)

	outbox := publisher.NewOutboxPoller(sessions, cfg.KafkaTopic, log, cfg.KafkaBrokers...)
	cleanup := poller.NewPoller(carts, cfg.KafkaTopic, log, cfg.KafkaBrokers...)

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		outbox.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		cleanup.Run(ctx)
	}()

	handler := cartapi.NewHandler(carts, checkouts, map[string]cartapi.HealthCheck{
		"mongo":    repo.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"postgres": sessions.Ping,
	}, cfg.RequestTimeout, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(cartapi.NewRouter(handler, cfg.MaxRequestBodySize), "cartd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("cartd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down cartd...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	stop()
	workers.Wait()
	outbox.Close()
	cleanup.Close()

	if err := repo.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Warn("mongo disconnect failed")
	}
	if tp != nil {
		_ = tp.Shutdown(shutdownCtx)
	}
	log.Info("cartd stopped")
}

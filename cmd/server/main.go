package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/cache"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/config"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/coupon"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/handlers"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/middleware"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/notify"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/payment"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/repository"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/internal/service"
	"github.com/ajesusdl27/FashionStoreEcomerce-sub001/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting storefront checkout api",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	// Database + migrations
	db, err := repository.Open(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database migrations completed")

	// Redis-backed webhook replay guard
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	events := cache.NewEventRegistry(redisClient, 24*time.Hour)

	// Repositories
	stockRepo := repository.NewPostgresStockRepository(db, log)
	orderRepo := repository.NewPostgresOrderRepository(db)
	couponRepo := repository.NewPostgresCouponRepository(db)
	productRepo := repository.NewPostgresProductRepository(db)

	// Coupon validator with its quick-reject filter
	couponValidator := coupon.NewValidator(couponRepo)
	reloadCtx, reloadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := couponValidator.ReloadCodes(reloadCtx); err != nil {
		log.Warn("could not preload coupon codes", "error", err)
	}
	reloadCancel()
	log.Info("coupon codes loaded", "count", couponValidator.LoadedCodes())

	stopReload := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := couponValidator.ReloadCodes(ctx); err != nil {
					log.Warn("coupon code reload failed", "error", err)
				}
				cancel()
			case <-stopReload:
				return
			}
		}
	}()

	// Payment processor client
	gateway := payment.NewClient(payment.Config{
		BaseURL:    cfg.Payment.BaseURL,
		SecretKey:  cfg.Payment.SecretKey,
		Currency:   cfg.Payment.Currency,
		SessionTTL: time.Duration(cfg.Payment.SessionTTLMin) * time.Minute,
	})

	// Fire-and-forget email queue
	sender := notify.NewProviderClient(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From)
	notifier := notify.NewNotifier(sender, log, cfg.Email.QueueSize)
	notifier.Start()
	defer notifier.Close()

	// Services
	checkoutService := service.NewCheckoutService(
		stockRepo, orderRepo, couponValidator, gateway,
		service.CheckoutConfig{
			ShippingFlatRate:      cfg.Shipping.FlatRate,
			FreeShippingThreshold: cfg.Shipping.FreeThreshold,
			SuccessURL:            cfg.Payment.SuccessURL,
			CancelURL:             cfg.Payment.CancelURL,
		},
		log,
	)
	reconcileService := service.NewReconcileService(
		orderRepo, stockRepo, gateway, events, notifier, cfg.Email.AdminEmail, log,
	)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, log)
	productHandler := handlers.NewProductHandler(productRepo, log)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, log)
	orderHandler := handlers.NewOrderHandler(reconcileService, log)
	webhookHandler := handlers.NewWebhookHandler(reconcileService, cfg.Payment.WebhookSecret, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Register health check endpoint
	r.Get("/health", healthHandler.ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog endpoints
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{productId}", productHandler.GetProduct)

		// Checkout endpoints
		r.Post("/checkout/create-session", checkoutHandler.CreateSession)
		r.Post("/checkout/create-payment-intent", checkoutHandler.CreatePaymentIntent)

		// Payment processor webhook (verified by signature, not by token)
		r.Post("/webhooks/payment", webhookHandler.Handle)

		// Authenticated order endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(cfg.Auth.JWTSecret))
			r.Post("/orders/cancel", orderHandler.Cancel)
			r.Post("/orders/send-confirmation-email", orderHandler.SendConfirmation)
		})
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	close(stopReload)

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

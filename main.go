package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopforge/storefront/internal/cache"
	delivery "github.com/shopforge/storefront/internal/delivery/http"
	"github.com/shopforge/storefront/internal/entity"
	"github.com/shopforge/storefront/internal/messaging"
	"github.com/shopforge/storefront/internal/messaging/kafka"
	"github.com/shopforge/storefront/internal/repository/postgres"
	"github.com/shopforge/storefront/internal/service"
	"github.com/shopforge/storefront/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slog.SetLogLoggerLevel(parseLogLevel(cfg.LogLevel))

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewStore(db)

	if cfg.SeedDemoProducts {
		if err := store.SeedProducts(context.Background(), demoProducts()); err != nil {
			slog.Error("Failed to seed products", "err", err)
			os.Exit(1)
		}
	}

	// --- Kafka ---
	broker := kafka.NewBroker(strings.Split(cfg.KafkaBrokers, ","))
	defer broker.Close()
	var publisher messaging.Publisher = broker

	// --- Redis ---
	var productCache service.ProductCache = service.NopCache{}
	if cfg.RedisAddr != "" {
		c := cache.New(cfg.RedisAddr, 5*time.Minute)
		defer c.Close()
		productCache = c
	}

	// --- Services ---
	policy := service.Policy{RequirePaymentForShipment: cfg.RequirePaymentForShipment}
	orderSvc := service.NewOrderService(store, publisher, productCache, policy)
	reviewSvc := service.NewReviewService(store, publisher, productCache)

	// --- HTTP ---
	handler := delivery.NewHandler(orderSvc, reviewSvc)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: delivery.EnableCORS(mux),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("HTTP server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func demoProducts() []entity.Product {
	return []entity.Product{
		{ID: "prod-001", Name: "Wireless Noise-Cancelling Headphones", Description: "Premium over-ear headphones with active noise cancellation and 30-hour battery life.", Price: 349.99, ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", Category: "Electronics", StockQuantity: 50},
		{ID: "prod-002", Name: "Mechanical Keyboard RGB", Description: "Cherry MX switches with per-key RGB lighting and aluminum frame.", Price: 179.99, ImageURL: "https://images.unsplash.com/photo-1618384887929-16ec33fab9ef?w=400", Category: "Electronics", StockQuantity: 120},
		{ID: "prod-003", Name: "Ultrawide Curved Monitor 34\"", Description: "UWQHD 3440x1440 144Hz IPS panel with USB-C connectivity.", Price: 699.99, ImageURL: "https://images.unsplash.com/photo-1527443224154-c4a3942d3acf?w=400", Category: "Electronics", StockQuantity: 30},
		{ID: "prod-004", Name: "Ergonomic Office Chair", Description: "Adjustable lumbar support, breathable mesh, and 4D armrests.", Price: 549.99, ImageURL: "https://images.unsplash.com/photo-1592078615290-033ee584e267?w=400", Category: "Furniture", StockQuantity: 25},
		{ID: "prod-005", Name: "Smart LED Desk Lamp", Description: "Adjustable color temperature, brightness levels, and USB charging port.", Price: 89.99, ImageURL: "https://images.unsplash.com/photo-1507473885765-e6ed057ab6fe?w=400", Category: "Home", StockQuantity: 200},
		{ID: "prod-006", Name: "Premium Laptop Backpack", Description: "Water-resistant 17\" laptop compartment with anti-theft design.", Price: 129.99, ImageURL: "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400", Category: "Accessories", StockQuantity: 80},
	}
}

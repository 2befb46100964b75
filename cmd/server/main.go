package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	apphttp "storefront/internal/http"
	"storefront/internal/integrations/catalog"
	"storefront/internal/integrations/orders"
	"storefront/internal/integrations/telegram"
	"storefront/internal/security/secretbox"
	"storefront/internal/service/checkout"
	"storefront/internal/service/coupon"
	"storefront/internal/service/pricing"
	storepkg "storefront/internal/store"
	"storefront/internal/store/memory"
	"storefront/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var st storepkg.Store
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Printf("postgres store unavailable, falling back to memory store: %v", err)
			st = memory.NewStore()
		} else {
			st = pgStore
		}
	} else {
		st = memory.NewStore()
	}

	pricingEngine := pricing.NewEngine(pricing.Policy{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
	})

	rules, err := coupon.ParseRules(cfg.CouponRules)
	if err != nil {
		log.Printf("invalid COUPON_RULES, using defaults: %v", err)
		rules = coupon.DefaultRules()
	}
	coupons := coupon.NewResolver(rules)

	var profileBox *secretbox.Box
	if cfg.ProfileEncryptionKey != "" {
		profileBox, err = secretbox.New(cfg.ProfileEncryptionKey)
		if err != nil {
			log.Printf("profile encryption disabled: %v", err)
		}
	}

	var productCache *catalog.Cache
	if cfg.RedisAddr != "" {
		productCache = catalog.NewCache(cfg.RedisAddr, "storefront:catalog")
	}
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, productCache, cfg.CatalogCacheTTL)

	submitter := orders.NewClient(
		cfg.OrdersEndpoint,
		cfg.OrdersTimeout,
		cfg.OrdersMaxRetries,
		cfg.OrdersRetryBase,
		cfg.OrdersRetryMax,
	)
	notifier := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)

	checkoutManager := checkout.NewManager(
		st,
		pricingEngine,
		coupons,
		submitter,
		notifier,
		profileBox,
		cfg.SubmitTimeout,
	)

	srv := apphttp.NewServer(cfg, st, pricingEngine, coupons, checkoutManager, catalogClient)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

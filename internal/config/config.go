package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	ListenAddr  string
	StoreMode   string
	DatabaseURL string

	CatalogBaseURL  string
	CatalogTimeout  time.Duration
	RedisAddr       string
	CatalogCacheTTL time.Duration

	// Pricing policy. Business constants, injected rather than hardcoded.
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	CouponRules           string

	OrdersEndpoint   string
	OrdersTimeout    time.Duration
	OrdersMaxRetries int
	OrdersRetryBase  time.Duration
	OrdersRetryMax   time.Duration
	SubmitTimeout    time.Duration

	JWTSecret            string
	ProfileEncryptionKey string

	TelegramBotToken string
	TelegramChatID   string
}

func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":18090"),
		StoreMode:   getEnv("STORE_MODE", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		CatalogBaseURL:  getEnv("CATALOG_BASE_URL", "http://localhost:8000/api/shop"),
		CatalogTimeout:  getDuration("CATALOG_TIMEOUT", 5*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", time.Minute),

		TaxRate:               getDecimal("TAX_RATE", "0.16"),
		FreeShippingThreshold: getDecimal("FREE_SHIPPING_THRESHOLD", "1000"),
		FlatShippingFee:       getDecimal("FLAT_SHIPPING_FEE", "50"),
		CouponRules:           getEnv("COUPON_RULES", "WELCOME10:percent:0.10,FREESHIP:freeship"),

		OrdersEndpoint:   getEnv("ORDERS_ENDPOINT", ""),
		OrdersTimeout:    getDuration("ORDERS_TIMEOUT", 5*time.Second),
		OrdersMaxRetries: getInt("ORDERS_MAX_RETRIES", 3),
		OrdersRetryBase:  getDuration("ORDERS_RETRY_BASE", 500*time.Millisecond),
		OrdersRetryMax:   getDuration("ORDERS_RETRY_MAX", 5*time.Second),
		SubmitTimeout:    getDuration("SUBMIT_TIMEOUT", 15*time.Second),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		ProfileEncryptionKey: getEnv("PROFILE_ENCRYPTION_KEY", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getDecimal(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}
